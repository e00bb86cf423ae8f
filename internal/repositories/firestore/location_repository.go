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

const locationsCollection = "locations"

// LocationRepository reads tenant locations stored in Firestore.
type LocationRepository struct {
	base *pfirestore.BaseRepository[domain.Location]
}

type locationDocument struct {
	ID        string    `firestore:"-"`
	TenantID  string    `firestore:"tenantId"`
	Name      string    `firestore:"name"`
	Address   string    `firestore:"address"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewLocationRepository constructs a Firestore-backed location repository.
func NewLocationRepository(provider *pfirestore.Provider) (*LocationRepository, error) {
	if provider == nil {
		return nil, errors.New("location repository: firestore provider is required")
	}

	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.Location, error) {
		var doc locationDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.Location{}, err
		}
		doc.ID = snap.Ref.ID
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = snap.CreateTime
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = snap.UpdateTime
		}
		return decodeLocationDocument(doc), nil
	}

	base := pfirestore.NewBaseRepository[domain.Location](provider, locationsCollection, decoder)
	return &LocationRepository{base: base}, nil
}

// ListByTenant returns the tenant's locations ordered by name.
func (r *LocationRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Location, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("location repository not initialised")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, errors.New("location repository: tenant id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("tenantId", "==", tenantID).OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	locations := make([]domain.Location, 0, len(docs))
	for _, doc := range docs {
		locations = append(locations, doc.Data)
	}
	return locations, nil
}

func decodeLocationDocument(doc locationDocument) domain.Location {
	return domain.Location{
		ID:        doc.ID,
		TenantID:  strings.TrimSpace(doc.TenantID),
		Name:      strings.TrimSpace(doc.Name),
		Address:   strings.TrimSpace(doc.Address),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

var _ repositories.LocationRepository = (*LocationRepository)(nil)
