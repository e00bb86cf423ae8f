package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/qravy/storefront-api/internal/domain"
	pfirestore "github.com/qravy/storefront-api/internal/platform/firestore"
	"github.com/qravy/storefront-api/internal/repositories"
)

const categoriesCollection = "categories"

// CategoryRepository bulk-reads menu categories stored in Firestore.
type CategoryRepository struct {
	base *pfirestore.BaseRepository[domain.Category]
}

type categoryDocument struct {
	ID           string    `firestore:"-"`
	TenantID     string    `firestore:"tenantId"`
	Name         string    `firestore:"name"`
	Scope        string    `firestore:"scope"`
	LocationID   string    `firestore:"locationId"`
	ChannelScope string    `firestore:"channelScope"`
	Position     int       `firestore:"position"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// NewCategoryRepository constructs a Firestore-backed category repository.
func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository: firestore provider is required")
	}

	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.Category, error) {
		var doc categoryDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.Category{}, err
		}
		doc.ID = snap.Ref.ID
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = snap.CreateTime
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = snap.UpdateTime
		}
		return decodeCategoryDocument(doc), nil
	}

	base := pfirestore.NewBaseRepository[domain.Category](provider, categoriesCollection, decoder)
	return &CategoryRepository{base: base}, nil
}

// ListByTenant returns every category of the tenant ordered by position.
func (r *CategoryRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Category, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("category repository not initialised")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, errors.New("category repository: tenant id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("tenantId", "==", tenantID).OrderBy("position", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, doc.Data)
	}
	return categories, nil
}

// GetByIDs fetches the referenced categories in one batched lookup. Ids with
// no backing document, or documents from another tenant, are skipped.
func (r *CategoryRepository) GetByIDs(ctx context.Context, tenantID string, ids []string) (map[string]domain.Category, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("category repository not initialised")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, errors.New("category repository: tenant id is required")
	}

	categories := make(map[string]domain.Category, len(ids))
	if len(ids) == 0 {
		return categories, nil
	}

	docs, err := r.base.GetAllByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.Data.TenantID != tenantID {
			continue
		}
		categories[doc.ID] = doc.Data
	}
	return categories, nil
}

func decodeCategoryDocument(doc categoryDocument) domain.Category {
	scope := domain.CategoryScope(strings.ToLower(strings.TrimSpace(doc.Scope)))
	if scope != domain.CategoryScopeLocation {
		scope = domain.CategoryScopeGlobal
	}
	channelScope := domain.ChannelScope(strings.ToLower(strings.TrimSpace(doc.ChannelScope)))
	switch channelScope {
	case domain.ChannelScopeDineIn, domain.ChannelScopeOnline:
	default:
		channelScope = domain.ChannelScopeAll
	}
	return domain.Category{
		ID:           doc.ID,
		TenantID:     strings.TrimSpace(doc.TenantID),
		Name:         strings.TrimSpace(doc.Name),
		Scope:        scope,
		LocationID:   strings.TrimSpace(doc.LocationID),
		ChannelScope: channelScope,
		Position:     doc.Position,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

var _ repositories.CategoryRepository = (*CategoryRepository)(nil)
