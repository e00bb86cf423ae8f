package services

import (
	"context"
	"time"

	domain "github.com/qravy/storefront-api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Tenant             = domain.Tenant
	Location           = domain.Location
	Category           = domain.Category
	MenuItem           = domain.MenuItem
	Channel            = domain.Channel
	ResolvedCategory   = domain.ResolvedCategory
	ResolvedItem       = domain.ResolvedItem
	MenuViewedEvent    = domain.MenuViewedEvent
	SystemHealthReport = domain.SystemHealthReport
)

// CatalogService resolves the storefront-visible catalog for a tenant query.
type CatalogService interface {
	Categories(ctx context.Context, query CatalogQuery) (CategoryListing, error)
	Items(ctx context.Context, query CatalogQuery) (ItemListing, error)
}

// MenuEventPublisher accepts storefront view events for downstream analytics.
type MenuEventPublisher interface {
	PublishMenuViewed(ctx context.Context, event MenuViewedEvent) (string, error)
}

// SystemService aggregates utility endpoints such as health reports.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// CatalogQuery carries the raw storefront query parameters. Branch and
// Channel are optional free text validated by the service.
type CatalogQuery struct {
	TenantSlug string
	Branch     string
	Channel    string
}

// CategoryListing is the resolved category view for one storefront query.
type CategoryListing struct {
	SnapshotID  string
	Tenant      Tenant
	Location    *Location
	Channels    []Channel
	Categories  []ResolvedCategory
	GeneratedAt time.Time
}

// ItemListing is the resolved item view for one storefront query.
type ItemListing struct {
	SnapshotID  string
	Tenant      Tenant
	Location    *Location
	Channels    []Channel
	Items       []ResolvedItem
	GeneratedAt time.Time
}
