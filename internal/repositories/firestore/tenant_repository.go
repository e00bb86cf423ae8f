package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/qravy/storefront-api/internal/domain"
	pfirestore "github.com/qravy/storefront-api/internal/platform/firestore"
	"github.com/qravy/storefront-api/internal/repositories"
)

const tenantsCollection = "tenants"

// TenantRepository resolves tenant accounts stored in Firestore.
type TenantRepository struct {
	base *pfirestore.BaseRepository[domain.Tenant]
}

type tenantDocument struct {
	ID        string    `firestore:"-"`
	Slug      string    `firestore:"slug"`
	Name      string    `firestore:"name"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewTenantRepository constructs a Firestore-backed tenant repository.
func NewTenantRepository(provider *pfirestore.Provider) (*TenantRepository, error) {
	if provider == nil {
		return nil, errors.New("tenant repository: firestore provider is required")
	}

	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (domain.Tenant, error) {
		var doc tenantDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.Tenant{}, err
		}
		doc.ID = snap.Ref.ID
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = snap.CreateTime
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = snap.UpdateTime
		}
		return decodeTenantDocument(doc), nil
	}

	base := pfirestore.NewBaseRepository[domain.Tenant](provider, tenantsCollection, decoder)
	return &TenantRepository{base: base}, nil
}

// GetBySlug returns the tenant registered under the given public slug.
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (domain.Tenant, error) {
	if r == nil || r.base == nil {
		return domain.Tenant{}, errors.New("tenant repository not initialised")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Tenant{}, errors.New("tenant repository: slug is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.Tenant{}, err
	}
	if len(docs) == 0 {
		return domain.Tenant{}, pfirestore.WrapError("tenants.getbyslug", status.Error(codes.NotFound, "tenant slug has no match"))
	}
	return docs[0].Data, nil
}

func decodeTenantDocument(doc tenantDocument) domain.Tenant {
	return domain.Tenant{
		ID:        doc.ID,
		Slug:      strings.TrimSpace(doc.Slug),
		Name:      strings.TrimSpace(doc.Name),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

var _ repositories.TenantRepository = (*TenantRepository)(nil)
