package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/qravy/storefront-api/internal/domain"
	pfirestore "github.com/qravy/storefront-api/internal/platform/firestore"
	"github.com/qravy/storefront-api/internal/repositories"
)

const categoryOverlaysCollection = "categoryOverlays"

// CategoryOverlayRepository bulk-reads category visibility overrides from Firestore.
type CategoryOverlayRepository struct {
	base *pfirestore.BaseRepository[overlayRecord]
}

type categoryOverlayDocument struct {
	TenantID   string `firestore:"tenantId"`
	CategoryID string `firestore:"categoryId"`
	LocationID string `firestore:"locationId"`
	Channel    string `firestore:"channel"`
	Removed    bool   `firestore:"removed"`
	Visible    *bool  `firestore:"visible"`
}

// NewCategoryOverlayRepository constructs a Firestore-backed category overlay repository.
func NewCategoryOverlayRepository(provider *pfirestore.Provider) (*CategoryOverlayRepository, error) {
	if provider == nil {
		return nil, errors.New("category overlay repository: firestore provider is required")
	}

	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (overlayRecord, error) {
		var doc categoryOverlayDocument
		if err := snap.DataTo(&doc); err != nil {
			return overlayRecord{}, err
		}
		return overlayRecord{
			EntityID:   strings.TrimSpace(doc.CategoryID),
			LocationID: doc.LocationID,
			Channel:    domain.Channel(strings.ToLower(strings.TrimSpace(doc.Channel))),
			Removed:    doc.Removed,
			Value:      doc.Visible,
		}, nil
	}

	base := pfirestore.NewBaseRepository[overlayRecord](provider, categoryOverlaysCollection, decoder)
	return &CategoryOverlayRepository{base: base}, nil
}

// DecisionsFor returns the effective visibility decision per (category, channel)
// key for the given scope. The candidate id set is queried in chunks so the
// fetch stays a fixed number of round trips regardless of catalog size.
func (r *CategoryOverlayRepository) DecisionsFor(ctx context.Context, scope repositories.OverlayScope) (domain.OverlaySet, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("category overlay repository not initialised")
	}
	tenantID := strings.TrimSpace(scope.TenantID)
	if tenantID == "" {
		return nil, errors.New("category overlay repository: tenant id is required")
	}
	if len(scope.EntityIDs) == 0 {
		return domain.OverlaySet{}, nil
	}

	var records []overlayRecord
	for _, chunk := range pfirestore.ChunkIDs(scope.EntityIDs) {
		chunk := chunk
		docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("tenantId", "==", tenantID).Where("categoryId", "in", chunk)
		})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			records = append(records, doc.Data)
		}
	}

	return buildOverlaySet(records, scope), nil
}

var _ repositories.CategoryOverlayRepository = (*CategoryOverlayRepository)(nil)
