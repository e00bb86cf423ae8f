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

const itemOverlaysCollection = "itemOverlays"

// ItemOverlayRepository bulk-reads item availability overrides from Firestore.
type ItemOverlayRepository struct {
	base *pfirestore.BaseRepository[overlayRecord]
}

type itemOverlayDocument struct {
	TenantID   string `firestore:"tenantId"`
	ItemID     string `firestore:"itemId"`
	LocationID string `firestore:"locationId"`
	Channel    string `firestore:"channel"`
	Removed    bool   `firestore:"removed"`
	Available  *bool  `firestore:"available"`
}

// NewItemOverlayRepository constructs a Firestore-backed item overlay repository.
func NewItemOverlayRepository(provider *pfirestore.Provider) (*ItemOverlayRepository, error) {
	if provider == nil {
		return nil, errors.New("item overlay repository: firestore provider is required")
	}

	decoder := func(ctx context.Context, snap *firestore.DocumentSnapshot) (overlayRecord, error) {
		var doc itemOverlayDocument
		if err := snap.DataTo(&doc); err != nil {
			return overlayRecord{}, err
		}
		return overlayRecord{
			EntityID:   strings.TrimSpace(doc.ItemID),
			LocationID: doc.LocationID,
			Channel:    domain.Channel(strings.ToLower(strings.TrimSpace(doc.Channel))),
			Removed:    doc.Removed,
			Value:      doc.Available,
		}, nil
	}

	base := pfirestore.NewBaseRepository[overlayRecord](provider, itemOverlaysCollection, decoder)
	return &ItemOverlayRepository{base: base}, nil
}

// DecisionsFor returns the effective availability decision per (item, channel)
// key for the given scope.
func (r *ItemOverlayRepository) DecisionsFor(ctx context.Context, scope repositories.OverlayScope) (domain.OverlaySet, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("item overlay repository not initialised")
	}
	tenantID := strings.TrimSpace(scope.TenantID)
	if tenantID == "" {
		return nil, errors.New("item overlay repository: tenant id is required")
	}
	if len(scope.EntityIDs) == 0 {
		return domain.OverlaySet{}, nil
	}

	var records []overlayRecord
	for _, chunk := range pfirestore.ChunkIDs(scope.EntityIDs) {
		chunk := chunk
		docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("tenantId", "==", tenantID).Where("itemId", "in", chunk)
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

var _ repositories.ItemOverlayRepository = (*ItemOverlayRepository)(nil)
