package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel identifies an ordering context for storefront visibility.
type Channel string

const (
	// ChannelDineIn covers orders placed at a table inside the venue.
	ChannelDineIn Channel = "dine-in"
	// ChannelOnline covers orders placed through the web storefront.
	ChannelOnline Channel = "online"
)

// AllChannels lists every ordering channel in evaluation order.
var AllChannels = []Channel{ChannelDineIn, ChannelOnline}

// ParseChannel validates a raw channel value from a query string.
func ParseChannel(raw string) (Channel, error) {
	switch Channel(strings.TrimSpace(strings.ToLower(raw))) {
	case ChannelDineIn:
		return ChannelDineIn, nil
	case ChannelOnline:
		return ChannelOnline, nil
	default:
		return "", fmt.Errorf("unrecognized channel %q", raw)
	}
}

// ChannelScope restricts which channels a category may ever be visible on,
// independent of overlays.
type ChannelScope string

const (
	// ChannelScopeAll places no channel restriction on the category.
	ChannelScopeAll ChannelScope = "all"
	// ChannelScopeDineIn limits the category to the dine-in channel.
	ChannelScopeDineIn ChannelScope = "dine-in"
	// ChannelScopeOnline limits the category to the online channel.
	ChannelScopeOnline ChannelScope = "online"
)

// Allows reports whether the scope admits the given channel. Unknown scope
// values are treated as unrestricted.
func (s ChannelScope) Allows(ch Channel) bool {
	switch s {
	case ChannelScopeDineIn:
		return ch == ChannelDineIn
	case ChannelScopeOnline:
		return ch == ChannelOnline
	default:
		return true
	}
}

// CategoryScope distinguishes tenant-wide categories from ones bound to a
// single location.
type CategoryScope string

const (
	// CategoryScopeGlobal makes the category visible at every location.
	CategoryScopeGlobal CategoryScope = "global"
	// CategoryScopeLocation binds the category to exactly one location.
	CategoryScopeLocation CategoryScope = "location"
)

// Tenant is one restaurant or brand account, the root scope for catalog data.
type Tenant struct {
	ID        string
	Slug      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location is a physical site belonging to a tenant.
type Location struct {
	ID        string
	TenantID  string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category groups menu items and carries the scope restrictions evaluated
// before any overlay.
type Category struct {
	ID           string
	TenantID     string
	Name         string
	Scope        CategoryScope
	LocationID   string
	ChannelScope ChannelScope
	Position     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LocationBound reports whether the category is restricted to one location.
func (c Category) LocationBound() bool {
	return c.Scope == CategoryScopeLocation && c.LocationID != ""
}

// ChannelFlags carries an item's static per-channel baseline visibility.
// A nil flag means the channel was never configured and defaults to visible.
type ChannelFlags struct {
	DineIn *bool
	Online *bool
}

// Enabled resolves the baseline flag for a channel, defaulting to true.
func (f ChannelFlags) Enabled(ch Channel) bool {
	var flag *bool
	switch ch {
	case ChannelDineIn:
		flag = f.DineIn
	case ChannelOnline:
		flag = f.Online
	}
	if flag == nil {
		return true
	}
	return *flag
}

// MenuItem is a sellable catalog entry. LocationID and CategoryID are
// optional; an unbound item is in scope for every location.
type MenuItem struct {
	ID          string
	TenantID    string
	LocationID  string
	CategoryID  string
	Name        string
	Description string
	PriceMinor  int64
	Currency    string
	ImagePath   string
	Labels      map[string]string
	Baseline    ChannelFlags
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OverlayKind enumerates the states an overlay decision can take for one
// (entity, channel) key.
type OverlayKind int

const (
	// OverlayAbsent means no overlay record applies; the layer imposes no restriction.
	OverlayAbsent OverlayKind = iota
	// OverlayRemoved is a tombstone: the pairing no longer exists for the scope.
	OverlayRemoved
	// OverlayExplicit carries an explicit boolean override.
	OverlayExplicit
)

// OverlayDecision is the tagged per-(entity, channel) override extracted from
// overlay records. Value is meaningful only when Kind is OverlayExplicit.
type OverlayDecision struct {
	Kind  OverlayKind
	Value bool
}

// Removed reports whether the decision is a tombstone.
func (d OverlayDecision) Removed() bool { return d.Kind == OverlayRemoved }

// ExplicitFalse reports an explicit boolean override with value false.
func (d OverlayDecision) ExplicitFalse() bool { return d.Kind == OverlayExplicit && !d.Value }

// ExplicitTrue reports an explicit boolean override with value true.
func (d OverlayDecision) ExplicitTrue() bool { return d.Kind == OverlayExplicit && d.Value }

// OverlayKey addresses one overlay decision inside a resolution snapshot.
type OverlayKey struct {
	EntityID string
	Channel  Channel
}

// OverlaySet holds the bulk-fetched overlay decisions for a snapshot.
type OverlaySet map[OverlayKey]OverlayDecision

// Decision returns the stored decision or an absent one.
func (s OverlaySet) Decision(entityID string, ch Channel) OverlayDecision {
	if s == nil {
		return OverlayDecision{}
	}
	return s[OverlayKey{EntityID: entityID, Channel: ch}]
}

// ResolvedCategory is the list-view verdict for one category.
type ResolvedCategory struct {
	Category Category
	Hidden   bool
}

// ItemStatus labels the channel-aggregated verdict for an item.
type ItemStatus string

const (
	// ItemStatusActive marks an item orderable on at least one evaluated channel.
	ItemStatusActive ItemStatus = "active"
	// ItemStatusHidden marks an item present but not orderable on any evaluated channel.
	ItemStatusHidden ItemStatus = "hidden"
)

// ResolvedItem is the final per-item verdict returned to the storefront.
type ResolvedItem struct {
	Item   MenuItem
	Hidden bool
	Status ItemStatus
}

// MenuViewedEvent is the analytics payload emitted after a successful
// storefront items resolution.
type MenuViewedEvent struct {
	SnapshotID    string    `json:"snapshotId"`
	TenantID      string    `json:"tenantId"`
	TenantSlug    string    `json:"tenantSlug"`
	LocationID    string    `json:"locationId,omitempty"`
	Channel       string    `json:"channel,omitempty"`
	ItemCount     int       `json:"itemCount"`
	ActiveCount   int       `json:"activeCount"`
	CategoryCount int       `json:"categoryCount"`
	OccurredAt    time.Time `json:"occurredAt"`
}
