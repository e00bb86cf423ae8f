package repositories

import (
	"context"

	domain "github.com/qravy/storefront-api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Tenants() TenantRepository
	Locations() LocationRepository
	Categories() CategoryRepository
	MenuItems() MenuItemRepository
	CategoryOverlays() CategoryOverlayRepository
	ItemOverlays() ItemOverlayRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// TenantRepository resolves tenant accounts by their public slug.
type TenantRepository interface {
	// GetBySlug returns the tenant registered under slug. Should return a
	// RepositoryError with IsNotFound when no tenant uses the slug.
	GetBySlug(ctx context.Context, slug string) (domain.Tenant, error)
}

// LocationRepository reads the physical sites registered for a tenant.
type LocationRepository interface {
	// ListByTenant returns every location of the tenant ordered by name so
	// fuzzy branch matching stays deterministic.
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Location, error)
}

// CategoryRepository reads catalog categories for storefront resolution.
type CategoryRepository interface {
	// ListByTenant returns every category of the tenant ordered by position.
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Category, error)
	// GetByIDs fetches the given categories in one batched lookup. Ids with no
	// backing document are skipped, never reported as an error.
	GetByIDs(ctx context.Context, tenantID string, ids []string) (map[string]domain.Category, error)
}

// ItemScope narrows a storefront item query to a tenant and an optional location.
type ItemScope struct {
	TenantID   string
	LocationID string
}

// MenuItemRepository reads the sellable items in scope for a storefront query.
type MenuItemRepository interface {
	// ListForStorefront returns the tenant's unbound items plus, when the scope
	// carries a location, the items bound to that location, ordered by name.
	ListForStorefront(ctx context.Context, scope ItemScope) ([]domain.MenuItem, error)
}

// OverlayScope narrows an overlay fetch to the candidate entity set of one snapshot.
type OverlayScope struct {
	TenantID   string
	LocationID string
	EntityIDs  []string
	Channels   []domain.Channel
}

// CategoryOverlayRepository bulk-reads category visibility overrides.
type CategoryOverlayRepository interface {
	// DecisionsFor returns the effective overlay decision per (category, channel)
	// key. Location-specific records take precedence over tenant-wide ones.
	DecisionsFor(ctx context.Context, scope OverlayScope) (domain.OverlaySet, error)
}

// ItemOverlayRepository bulk-reads item availability overrides.
type ItemOverlayRepository interface {
	// DecisionsFor returns the effective overlay decision per (item, channel) key.
	DecisionsFor(ctx context.Context, scope OverlayScope) (domain.OverlaySet, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
