package firestore

import (
	"strings"

	domain "github.com/qravy/storefront-api/internal/domain"
	"github.com/qravy/storefront-api/internal/repositories"
)

// overlayRecord is the collection-independent shape shared by category and
// item overlay documents once decoded.
type overlayRecord struct {
	EntityID   string
	LocationID string
	Channel    domain.Channel
	Removed    bool
	Value      *bool
}

// buildOverlaySet folds raw overlay records into per-(entity, channel)
// decisions for the given scope. Records outside the scope's location or
// channel selection are dropped; a location-specific record beats a
// tenant-wide one at the same key. When a record carries both the tombstone
// flag and a boolean (schemaless drift), the tombstone wins.
func buildOverlaySet(records []overlayRecord, scope repositories.OverlayScope) domain.OverlaySet {
	channels := scope.Channels
	if len(channels) == 0 {
		channels = domain.AllChannels
	}
	channelAllowed := make(map[domain.Channel]struct{}, len(channels))
	for _, ch := range channels {
		channelAllowed[ch] = struct{}{}
	}
	locationID := strings.TrimSpace(scope.LocationID)

	set := make(domain.OverlaySet)
	specific := make(map[domain.OverlayKey]bool)
	for _, record := range records {
		if record.EntityID == "" {
			continue
		}
		if _, ok := channelAllowed[record.Channel]; !ok {
			continue
		}
		recordLocation := strings.TrimSpace(record.LocationID)
		if recordLocation != "" && recordLocation != locationID {
			continue
		}

		key := domain.OverlayKey{EntityID: record.EntityID, Channel: record.Channel}
		isSpecific := recordLocation != ""
		if _, exists := set[key]; exists && specific[key] && !isSpecific {
			continue
		}

		set[key] = overlayDecision(record)
		specific[key] = isSpecific
	}
	return set
}

func overlayDecision(record overlayRecord) domain.OverlayDecision {
	if record.Removed {
		return domain.OverlayDecision{Kind: domain.OverlayRemoved}
	}
	if record.Value != nil {
		return domain.OverlayDecision{Kind: domain.OverlayExplicit, Value: *record.Value}
	}
	return domain.OverlayDecision{}
}
