package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/qravy/storefront-api/internal/platform/firestore"
	"github.com/qravy/storefront-api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	tenants          *TenantRepository
	locations        *LocationRepository
	categories       *CategoryRepository
	menuItems        *MenuItemRepository
	categoryOverlays *CategoryOverlayRepository
	itemOverlays     *ItemOverlayRepository
	health           repositories.HealthRepository
}

// RegistryOption customises registry construction.
type RegistryOption func(*Registry)

// WithHealthRepository attaches the dependency health repository exposed via Health.
func WithHealthRepository(repo repositories.HealthRepository) RegistryOption {
	return func(r *Registry) {
		r.health = repo
	}
}

// NewRegistry constructs every Firestore repository over a shared provider.
func NewRegistry(provider *pfirestore.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	tenants, err := NewTenantRepository(provider)
	if err != nil {
		return nil, err
	}
	locations, err := NewLocationRepository(provider)
	if err != nil {
		return nil, err
	}
	categories, err := NewCategoryRepository(provider)
	if err != nil {
		return nil, err
	}
	menuItems, err := NewMenuItemRepository(provider)
	if err != nil {
		return nil, err
	}
	categoryOverlays, err := NewCategoryOverlayRepository(provider)
	if err != nil {
		return nil, err
	}
	itemOverlays, err := NewItemOverlayRepository(provider)
	if err != nil {
		return nil, err
	}

	registry := &Registry{
		provider:         provider,
		tenants:          tenants,
		locations:        locations,
		categories:       categories,
		menuItems:        menuItems,
		categoryOverlays: categoryOverlays,
		itemOverlays:     itemOverlays,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(registry)
		}
	}
	return registry, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Tenants returns the tenant repository.
func (r *Registry) Tenants() repositories.TenantRepository { return r.tenants }

// Locations returns the location repository.
func (r *Registry) Locations() repositories.LocationRepository { return r.locations }

// Categories returns the category repository.
func (r *Registry) Categories() repositories.CategoryRepository { return r.categories }

// MenuItems returns the menu item repository.
func (r *Registry) MenuItems() repositories.MenuItemRepository { return r.menuItems }

// CategoryOverlays returns the category overlay repository.
func (r *Registry) CategoryOverlays() repositories.CategoryOverlayRepository {
	return r.categoryOverlays
}

// ItemOverlays returns the item overlay repository.
func (r *Registry) ItemOverlays() repositories.ItemOverlayRepository { return r.itemOverlays }

// Health returns the dependency health repository when configured.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

var _ repositories.Registry = (*Registry)(nil)
