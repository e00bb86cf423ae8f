package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/qravy/storefront-api/internal/domain"
	"github.com/qravy/storefront-api/internal/platform/textutil"
	"github.com/qravy/storefront-api/internal/repositories"
)

var (
	// ErrTenantSlugRequired indicates the query omitted the mandatory tenant slug.
	ErrTenantSlugRequired = errors.New("catalog service: tenantSlug is required")
	// ErrUnknownChannel indicates the query carried an unrecognized channel value.
	ErrUnknownChannel = errors.New("catalog service: unknown channel")
)

const menuEventPublishTimeout = 5 * time.Second

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Tenants          repositories.TenantRepository
	Locations        repositories.LocationRepository
	Categories       repositories.CategoryRepository
	MenuItems        repositories.MenuItemRepository
	CategoryOverlays repositories.CategoryOverlayRepository
	ItemOverlays     repositories.ItemOverlayRepository
	Events           MenuEventPublisher
	Logger           *zap.Logger
	Clock            func() time.Time
	IDGenerator      func() string
	EmitMenuEvents   bool
}

type catalogService struct {
	tenants          repositories.TenantRepository
	locations        repositories.LocationRepository
	categories       repositories.CategoryRepository
	menuItems        repositories.MenuItemRepository
	categoryOverlays repositories.CategoryOverlayRepository
	itemOverlays     repositories.ItemOverlayRepository
	events           MenuEventPublisher
	logger           *zap.Logger
	clock            func() time.Time
	idGen            func() string
	emitMenuEvents   bool
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the storefront catalog service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Tenants == nil {
		return nil, fmt.Errorf("catalog service: tenant repository is required")
	}
	if deps.Locations == nil {
		return nil, fmt.Errorf("catalog service: location repository is required")
	}
	if deps.Categories == nil {
		return nil, fmt.Errorf("catalog service: category repository is required")
	}
	if deps.MenuItems == nil {
		return nil, fmt.Errorf("catalog service: menu item repository is required")
	}
	if deps.CategoryOverlays == nil {
		return nil, fmt.Errorf("catalog service: category overlay repository is required")
	}
	if deps.ItemOverlays == nil {
		return nil, fmt.Errorf("catalog service: item overlay repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &catalogService{
		tenants:          deps.Tenants,
		locations:        deps.Locations,
		categories:       deps.Categories,
		menuItems:        deps.MenuItems,
		categoryOverlays: deps.CategoryOverlays,
		itemOverlays:     deps.ItemOverlays,
		events:           deps.Events,
		logger:           logger,
		clock:            func() time.Time { return clock().UTC() },
		idGen:            idGen,
		emitMenuEvents:   deps.EmitMenuEvents,
	}, nil
}

// queryScope is the validated and resolved form of a CatalogQuery.
type queryScope struct {
	Tenant   domain.Tenant
	Location *domain.Location
	Channels []domain.Channel
}

func (s queryScope) locationID() string {
	if s.Location == nil {
		return ""
	}
	return s.Location.ID
}

func (s *catalogService) Categories(ctx context.Context, query CatalogQuery) (CategoryListing, error) {
	scope, err := s.resolveScope(ctx, query)
	if err != nil {
		return CategoryListing{}, err
	}

	categories, err := s.categories.ListByTenant(ctx, scope.Tenant.ID)
	if err != nil {
		return CategoryListing{}, err
	}

	overlays, err := s.categoryOverlays.DecisionsFor(ctx, repositories.OverlayScope{
		TenantID:   scope.Tenant.ID,
		LocationID: scope.locationID(),
		EntityIDs:  categoryIDs(categories),
		Channels:   scope.Channels,
	})
	if err != nil {
		return CategoryListing{}, err
	}

	resolved := resolveCategories(categories, visibilitySnapshot{
		LocationID:       scope.locationID(),
		Channels:         scope.Channels,
		CategoryOverlays: overlays,
	})

	return CategoryListing{
		SnapshotID:  s.idGen(),
		Tenant:      scope.Tenant,
		Location:    scope.Location,
		Channels:    scope.Channels,
		Categories:  resolved,
		GeneratedAt: s.clock(),
	}, nil
}

func (s *catalogService) Items(ctx context.Context, query CatalogQuery) (ItemListing, error) {
	scope, err := s.resolveScope(ctx, query)
	if err != nil {
		return ItemListing{}, err
	}

	items, err := s.menuItems.ListForStorefront(ctx, repositories.ItemScope{
		TenantID:   scope.Tenant.ID,
		LocationID: scope.locationID(),
	})
	if err != nil {
		return ItemListing{}, err
	}

	snap, err := s.fetchItemSnapshot(ctx, scope, items)
	if err != nil {
		return ItemListing{}, err
	}

	resolved := resolveItems(snap)
	listing := ItemListing{
		SnapshotID:  s.idGen(),
		Tenant:      scope.Tenant,
		Location:    scope.Location,
		Channels:    scope.Channels,
		Items:       resolved,
		GeneratedAt: s.clock(),
	}
	s.emitMenuViewed(ctx, query, listing)
	return listing, nil
}

// fetchItemSnapshot issues the three remaining batched reads concurrently.
// Any failed read fails the whole request; partial overlay data would
// silently misapply the precedence rules.
func (s *catalogService) fetchItemSnapshot(ctx context.Context, scope queryScope, items []domain.MenuItem) (visibilitySnapshot, error) {
	catIDs := referencedCategoryIDs(items)
	itemIDs := make([]string, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		firstErr   error
		categories map[string]domain.Category
		catSet     domain.OverlaySet
		itemSet    domain.OverlaySet
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		result, err := s.categories.GetByIDs(ctx, scope.Tenant.ID, catIDs)
		record(err)
		categories = result
	}()
	go func() {
		defer wg.Done()
		result, err := s.categoryOverlays.DecisionsFor(ctx, repositories.OverlayScope{
			TenantID:   scope.Tenant.ID,
			LocationID: scope.locationID(),
			EntityIDs:  catIDs,
			Channels:   scope.Channels,
		})
		record(err)
		catSet = result
	}()
	go func() {
		defer wg.Done()
		result, err := s.itemOverlays.DecisionsFor(ctx, repositories.OverlayScope{
			TenantID:   scope.Tenant.ID,
			LocationID: scope.locationID(),
			EntityIDs:  itemIDs,
			Channels:   scope.Channels,
		})
		record(err)
		itemSet = result
	}()
	wg.Wait()

	if firstErr != nil {
		return visibilitySnapshot{}, firstErr
	}
	return visibilitySnapshot{
		LocationID:       scope.locationID(),
		Channels:         scope.Channels,
		Categories:       categories,
		Items:            items,
		CategoryOverlays: catSet,
		ItemOverlays:     itemSet,
	}, nil
}

// resolveScope validates the query inputs, loads the tenant, and resolves the
// optional branch name to a location.
func (s *catalogService) resolveScope(ctx context.Context, query CatalogQuery) (queryScope, error) {
	slug := strings.TrimSpace(query.TenantSlug)
	if slug == "" {
		return queryScope{}, ErrTenantSlugRequired
	}

	channels, err := resolveChannels(query.Channel)
	if err != nil {
		return queryScope{}, err
	}

	tenant, err := s.tenants.GetBySlug(ctx, slug)
	if err != nil {
		return queryScope{}, err
	}

	var location *domain.Location
	if strings.TrimSpace(query.Branch) != "" {
		locations, err := s.locations.ListByTenant(ctx, tenant.ID)
		if err != nil {
			return queryScope{}, err
		}
		location = matchLocation(locations, query.Branch)
		if location == nil {
			s.logger.Debug("branch did not match a location, resolving tenant-wide",
				zap.String("tenant", tenant.Slug),
				zap.String("branch", query.Branch),
			)
		}
	}

	return queryScope{Tenant: tenant, Location: location, Channels: channels}, nil
}

// resolveChannels maps the raw channel parameter to the channels to evaluate.
// An empty value means both channels; anything else must parse exactly.
func resolveChannels(raw string) ([]domain.Channel, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.AllChannels, nil
	}
	channel, err := domain.ParseChannel(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, raw)
	}
	return []domain.Channel{channel}, nil
}

// matchLocation finds the first location whose name matches the branch text,
// either case-insensitively or after slug normalization. Slugs are also
// compared with hyphens stripped so "downtown", "down town", and "down-town"
// all resolve a location named "Down Town". No match is not an error: the
// public storefront should still work with a mistyped branch name.
func matchLocation(locations []domain.Location, branch string) *domain.Location {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return nil
	}
	normalized := textutil.Slugify(branch)
	collapsed := strings.ReplaceAll(normalized, "-", "")
	for i := range locations {
		if strings.EqualFold(locations[i].Name, branch) {
			return &locations[i]
		}
		nameSlug := textutil.Slugify(locations[i].Name)
		if normalized != "" && nameSlug == normalized {
			return &locations[i]
		}
		if collapsed != "" && strings.ReplaceAll(nameSlug, "-", "") == collapsed {
			return &locations[i]
		}
	}
	return nil
}

// emitMenuViewed publishes the analytics event without blocking or failing
// the request.
func (s *catalogService) emitMenuViewed(ctx context.Context, query CatalogQuery, listing ItemListing) {
	if !s.emitMenuEvents || s.events == nil {
		return
	}

	active := 0
	categorySet := make(map[string]struct{})
	for _, item := range listing.Items {
		if !item.Hidden {
			active++
		}
		if item.Item.CategoryID != "" {
			categorySet[item.Item.CategoryID] = struct{}{}
		}
	}
	locationID := ""
	if listing.Location != nil {
		locationID = listing.Location.ID
	}
	event := domain.MenuViewedEvent{
		SnapshotID:    listing.SnapshotID,
		TenantID:      listing.Tenant.ID,
		TenantSlug:    listing.Tenant.Slug,
		LocationID:    locationID,
		Channel:       strings.TrimSpace(query.Channel),
		ItemCount:     len(listing.Items),
		ActiveCount:   active,
		CategoryCount: len(categorySet),
		OccurredAt:    listing.GeneratedAt,
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), menuEventPublishTimeout)
	go func() {
		defer cancel()
		if _, err := s.events.PublishMenuViewed(publishCtx, event); err != nil {
			s.logger.Warn("menu viewed event publish failed",
				zap.String("tenant", event.TenantSlug),
				zap.Error(err),
			)
		}
	}()
}

func categoryIDs(categories []domain.Category) []string {
	ids := make([]string, 0, len(categories))
	for _, category := range categories {
		ids = append(ids, category.ID)
	}
	return ids
}

// referencedCategoryIDs collects the distinct category ids referenced by the
// in-scope items.
func referencedCategoryIDs(items []domain.MenuItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.CategoryID == "" {
			continue
		}
		if _, ok := seen[item.CategoryID]; ok {
			continue
		}
		seen[item.CategoryID] = struct{}{}
		ids = append(ids, item.CategoryID)
	}
	return ids
}
