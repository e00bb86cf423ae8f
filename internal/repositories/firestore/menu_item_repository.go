package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/qravy/storefront-api/internal/domain"
	pfirestore "github.com/qravy/storefront-api/internal/platform/firestore"
	"github.com/qravy/storefront-api/internal/platform/textutil"
	"github.com/qravy/storefront-api/internal/repositories"
)

const menuItemsCollection = "menuItems"

// MenuItemRepository reads sellable catalog items stored in Firestore.
type MenuItemRepository struct {
	base *pfirestore.BaseRepository[domain.MenuItem]
}

type baselineDocument struct {
	DineIn *bool `firestore:"dineIn"`
	Online *bool `firestore:"online"`
}

type menuItemDocument struct {
	ID          string            `firestore:"-"`
	TenantID    string            `firestore:"tenantId"`
	LocationID  string            `firestore:"locationId"`
	CategoryID  string            `firestore:"categoryId"`
	Name        string            `firestore:"name"`
	Description string            `firestore:"description"`
	PriceMinor  int64             `firestore:"priceMinor"`
	Currency    string            `firestore:"currency"`
	ImagePath   string            `firestore:"imagePath"`
	Labels      map[string]string `firestore:"labels"`
	Channels    baselineDocument  `firestore:"channels"`
	Position    int               `firestore:"position"`
	CreatedAt   time.Time         `firestore:"createdAt"`
	UpdatedAt   time.Time         `firestore:"updatedAt"`
}

// NewMenuItemRepository constructs a Firestore-backed menu item repository.
func NewMenuItemRepository(provider *pfirestore.Provider) (*MenuItemRepository, error) {
	if provider == nil {
		return nil, errors.New("menu item repository: firestore provider is required")
	}

	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.MenuItem, error) {
		var doc menuItemDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.MenuItem{}, err
		}
		doc.ID = snap.Ref.ID
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = snap.CreateTime
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = snap.UpdateTime
		}
		return decodeMenuItemDocument(doc), nil
	}

	base := pfirestore.NewBaseRepository[domain.MenuItem](provider, menuItemsCollection, decoder)
	return &MenuItemRepository{base: base}, nil
}

// ListForStorefront returns the tenant's unbound items plus, when the scope
// carries a location, the items bound to that location. Two equality queries
// are merged because Firestore cannot express the disjunction in one.
func (r *MenuItemRepository) ListForStorefront(ctx context.Context, scope repositories.ItemScope) ([]domain.MenuItem, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("menu item repository not initialised")
	}
	tenantID := strings.TrimSpace(scope.TenantID)
	if tenantID == "" {
		return nil, errors.New("menu item repository: tenant id is required")
	}
	locationID := strings.TrimSpace(scope.LocationID)

	locationFilters := []string{""}
	if locationID != "" {
		locationFilters = append(locationFilters, locationID)
	}

	seen := make(map[string]struct{})
	var items []domain.MenuItem
	for _, filter := range locationFilters {
		filter := filter
		docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("tenantId", "==", tenantID).Where("locationId", "==", filter)
		})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if _, ok := seen[doc.ID]; ok {
				continue
			}
			seen[doc.ID] = struct{}{}
			items = append(items, doc.Data)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		left := textutil.Slugify(items[i].Name)
		right := textutil.Slugify(items[j].Name)
		if left != right {
			return left < right
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func decodeMenuItemDocument(doc menuItemDocument) domain.MenuItem {
	return domain.MenuItem{
		ID:          doc.ID,
		TenantID:    strings.TrimSpace(doc.TenantID),
		LocationID:  strings.TrimSpace(doc.LocationID),
		CategoryID:  strings.TrimSpace(doc.CategoryID),
		Name:        strings.TrimSpace(doc.Name),
		Description: doc.Description,
		PriceMinor:  doc.PriceMinor,
		Currency:    strings.ToUpper(strings.TrimSpace(doc.Currency)),
		ImagePath:   strings.TrimSpace(doc.ImagePath),
		Labels:      textutil.NormalizeStringMap(doc.Labels),
		Baseline: domain.ChannelFlags{
			DineIn: doc.Channels.DineIn,
			Online: doc.Channels.Online,
		},
		Position:  doc.Position,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

var _ repositories.MenuItemRepository = (*MenuItemRepository)(nil)
