package services

import (
	"reflect"
	"testing"

	domain "github.com/qravy/storefront-api/internal/domain"
)

func flagPtr(v bool) *bool { return &v }

func overlaySet(entries map[domain.OverlayKey]domain.OverlayDecision) domain.OverlaySet {
	set := make(domain.OverlaySet, len(entries))
	for key, decision := range entries {
		set[key] = decision
	}
	return set
}

func explicit(value bool) domain.OverlayDecision {
	return domain.OverlayDecision{Kind: domain.OverlayExplicit, Value: value}
}

func tombstone() domain.OverlayDecision {
	return domain.OverlayDecision{Kind: domain.OverlayRemoved}
}

func TestResolveItemsPlainItemIsActiveOnAnyChannel(t *testing.T) {
	item := domain.MenuItem{ID: "item-1", TenantID: "t-1", Name: "Espresso"}

	for _, channels := range [][]domain.Channel{
		{domain.ChannelDineIn},
		{domain.ChannelOnline},
		domain.AllChannels,
	} {
		resolved := resolveItems(visibilitySnapshot{
			Channels: channels,
			Items:    []domain.MenuItem{item},
		})
		if len(resolved) != 1 {
			t.Fatalf("channels %v: expected 1 item, got %d", channels, len(resolved))
		}
		if resolved[0].Hidden {
			t.Fatalf("channels %v: expected hidden=false", channels)
		}
		if resolved[0].Status != domain.ItemStatusActive {
			t.Fatalf("channels %v: expected active status, got %q", channels, resolved[0].Status)
		}
	}
}

func TestResolveItemsItemTombstoneRemovesChannel(t *testing.T) {
	item := domain.MenuItem{ID: "item-1", TenantID: "t-1"}

	t.Run("single channel query excludes the item", func(t *testing.T) {
		resolved := resolveItems(visibilitySnapshot{
			Channels: []domain.Channel{domain.ChannelDineIn},
			Items:    []domain.MenuItem{item},
			ItemOverlays: overlaySet(map[domain.OverlayKey]domain.OverlayDecision{
				{EntityID: "item-1", Channel: domain.ChannelDineIn}: tombstone(),
			}),
		})
		if len(resolved) != 0 {
			t.Fatalf("expected no items, got %d", len(resolved))
		}
	})

	t.Run("both channels query survives on the other channel", func(t *testing.T) {
		resolved := resolveItems(visibilitySnapshot{
			Channels: domain.AllChannels,
			Items:    []domain.MenuItem{item},
			ItemOverlays: overlaySet(map[domain.OverlayKey]domain.OverlayDecision{
				{EntityID: "item-1", Channel: domain.ChannelDineIn}: tombstone(),
			}),
		})
		if len(resolved) != 1 || resolved[0].Hidden {
			t.Fatalf("expected one active item, got %+v", resolved)
		}
	})
}

func TestResolveItemsCategoryVetoBeatsItemOverride(t *testing.T) {
	category := domain.Category{ID: "cat-1", TenantID: "t-1", ChannelScope: domain.ChannelScopeAll}
	item := domain.MenuItem{ID: "item-1", TenantID: "t-1", CategoryID: "cat-1"}

	resolved := resolveItems(visibilitySnapshot{
		Channels:   []domain.Channel{domain.ChannelOnline},
		Categories: map[string]domain.Category{"cat-1": category},
		Items:      []domain.MenuItem{item},
		CategoryOverlays: overlaySet(map[domain.OverlayKey]domain.OverlayDecision{
			{EntityID: "cat-1", Channel: domain.ChannelOnline}: explicit(false),
		}),
		ItemOverlays: overlaySet(map[domain.OverlayKey]domain.OverlayDecision{
			{EntityID: "item-1", Channel: domain.ChannelOnline}: explicit(true),
		}),
	})

	if len(resolved) != 1 {
		t.Fatalf("expected item present, got %d items", len(resolved))
	}
	if !resolved[0].Hidden || resolved[0].Status != domain.ItemStatusHidden {
		t.Fatalf("category veto should force hidden, got %+v", resolved[0])
	}
}

func TestResolveItemsBothChannelsOrSemantics(t *testing.T) {
	// Dine-in is vetoed through the item overlay, online stays on baseline.
	item := domain.MenuItem{ID: "item-1", TenantID: "t-1"}

	resolved := resolveItems(visibilitySnapshot{
		Channels: domain.AllChannels,
		Items:    []domain.MenuItem{item},
		ItemOverlays: overlaySet(map[domain.OverlayKey]domain.OverlayDecision{
			{EntityID: "item-1", Channel: domain.ChannelDineIn}: explicit(false),
		}),
	})

	if len(resolved) != 1 || resolved[0].Hidden {
		t.Fatalf("item active on one channel must resolve active, got %+v", resolved)
	}
}

func TestResolveItemsForeignLocationCategoryExcludesItems(t *testing.T) {
	category := domain.Category{
		ID:         "cat-1",
		TenantID:   "t-1",
		Scope:      domain.CategoryScopeLocation,
		LocationID: "loc-other",
	}
	item := domain.MenuItem{ID: "item-1", TenantID: "t-1", CategoryID: "cat-1"}

	for _, channels := range [][]domain.Channel{
		{domain.ChannelDineIn},
		{domain.ChannelOnline},
		domain.AllChannels,
	} {
		resolved := resolveItems(visibilitySnapshot{
			LocationID: "loc-1",
			Channels:   channels,
			Categories: map[string]domain.Category{"cat-1": category},
			Items:      []domain.MenuItem{item},
		})
		if len(resolved) != 0 {
			t.Fatalf("channels %v: location gate should exclude the item, got %+v", channels, resolved)
		}
	}
}

func TestResolveItemsBaselineFalseNeedsExplicitOptIn(t *testing.T) {
	base := domain.MenuItem{
		ID:       "item-1",
		TenantID: "t-1",
		Baseline: domain.ChannelFlags{Online: flagPtr(false)},
	}

	t.Run("without overlay stays hidden", func(t *testing.T) {
		resolved := resolveItems(visibilitySnapshot{
			Channels: []domain.Channel{domain.ChannelOnline},
			Items:    []domain.MenuItem{base},
		})
		if len(resolved) != 1 || !resolved[0].Hidden {
			t.Fatalf("expected present but hidden, got %+v", resolved)
		}
	})

	t.Run("explicit true overlay resurrects", func(t *testing.T) {
		resolved := resolveItems(visibilitySnapshot{
			Channels: []domain.Channel{domain.ChannelOnline},
			Items:    []domain.MenuItem{base},
			ItemOverlays: overlaySet(map[domain.OverlayKey]domain.OverlayDecision{
				{EntityID: "item-1", Channel: domain.ChannelOnline}: explicit(true),
			}),
		})
		if len(resolved) != 1 || resolved[0].Hidden {
			t.Fatalf("explicit true overlay should activate the item, got %+v", resolved)
		}
	})
}

func TestResolveItemsCategoryChannelScopeExcludesChannel(t *testing.T) {
	category := domain.Category{ID: "cat-1", TenantID: "t-1", ChannelScope: domain.ChannelScopeDineIn}
	item := domain.MenuItem{ID: "item-1", TenantID: "t-1", CategoryID: "cat-1"}

	resolved := resolveItems(visibilitySnapshot{
		Channels:   []domain.Channel{domain.ChannelOnline},
		Categories: map[string]domain.Category{"cat-1": category},
		Items:      []domain.MenuItem{item},
	})

	if len(resolved) != 0 {
		t.Fatalf("dine-in scoped category must never surface online items, got %+v", resolved)
	}
}

func TestResolveItemsMissingCategoryReferenceIsPermissive(t *testing.T) {
	item := domain.MenuItem{ID: "item-1", TenantID: "t-1", CategoryID: "cat-gone"}

	resolved := resolveItems(visibilitySnapshot{
		Channels: domain.AllChannels,
		Items:    []domain.MenuItem{item},
	})

	if len(resolved) != 1 || resolved[0].Hidden {
		t.Fatalf("dangling category reference imposes no restriction, got %+v", resolved)
	}
}

func TestResolveItemsDeterministic(t *testing.T) {
	snap := visibilitySnapshot{
		LocationID: "loc-1",
		Channels:   domain.AllChannels,
		Categories: map[string]domain.Category{
			"cat-1": {ID: "cat-1", TenantID: "t-1", ChannelScope: domain.ChannelScopeAll},
		},
		Items: []domain.MenuItem{
			{ID: "item-1", TenantID: "t-1", CategoryID: "cat-1"},
			{ID: "item-2", TenantID: "t-1", Baseline: domain.ChannelFlags{DineIn: flagPtr(false), Online: flagPtr(false)}},
			{ID: "item-3", TenantID: "t-1"},
		},
		ItemOverlays: overlaySet(map[domain.OverlayKey]domain.OverlayDecision{
			{EntityID: "item-3", Channel: domain.ChannelDineIn}: tombstone(),
		}),
	}

	first := resolveItems(snap)
	second := resolveItems(snap)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolution is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestResolveCategoriesSingleChannel(t *testing.T) {
	categories := []domain.Category{
		{ID: "cat-all", TenantID: "t-1", ChannelScope: domain.ChannelScopeAll},
		{ID: "cat-dinein", TenantID: "t-1", ChannelScope: domain.ChannelScopeDineIn},
		{ID: "cat-removed", TenantID: "t-1", ChannelScope: domain.ChannelScopeAll},
		{ID: "cat-denied", TenantID: "t-1", ChannelScope: domain.ChannelScopeAll},
	}
	snap := visibilitySnapshot{
		Channels: []domain.Channel{domain.ChannelOnline},
		CategoryOverlays: overlaySet(map[domain.OverlayKey]domain.OverlayDecision{
			{EntityID: "cat-removed", Channel: domain.ChannelOnline}: tombstone(),
			{EntityID: "cat-denied", Channel: domain.ChannelOnline}:  explicit(false),
		}),
	}

	resolved := resolveCategories(categories, snap)

	if len(resolved) != 2 {
		t.Fatalf("expected 2 categories, got %d: %+v", len(resolved), resolved)
	}
	if resolved[0].Category.ID != "cat-all" || resolved[0].Hidden {
		t.Fatalf("unexpected first category: %+v", resolved[0])
	}
	if resolved[1].Category.ID != "cat-denied" || !resolved[1].Hidden {
		t.Fatalf("explicit false overlay should hide the category: %+v", resolved[1])
	}
}

func TestResolveCategoriesBothChannels(t *testing.T) {
	categories := []domain.Category{
		{ID: "cat-dinein", TenantID: "t-1", ChannelScope: domain.ChannelScopeDineIn},
		{ID: "cat-tombstoned", TenantID: "t-1", ChannelScope: domain.ChannelScopeAll},
		{ID: "cat-half", TenantID: "t-1", ChannelScope: domain.ChannelScopeAll},
	}
	snap := visibilitySnapshot{
		Channels: domain.AllChannels,
		CategoryOverlays: overlaySet(map[domain.OverlayKey]domain.OverlayDecision{
			{EntityID: "cat-tombstoned", Channel: domain.ChannelDineIn}: tombstone(),
			{EntityID: "cat-tombstoned", Channel: domain.ChannelOnline}: tombstone(),
			{EntityID: "cat-half", Channel: domain.ChannelDineIn}:       tombstone(),
			{EntityID: "cat-half", Channel: domain.ChannelOnline}:       explicit(false),
		}),
	}

	resolved := resolveCategories(categories, snap)

	if len(resolved) != 2 {
		t.Fatalf("expected 2 categories, got %d: %+v", len(resolved), resolved)
	}
	// A single-channel scope still lists under a both-channels query.
	if resolved[0].Category.ID != "cat-dinein" || resolved[0].Hidden {
		t.Fatalf("unexpected first category: %+v", resolved[0])
	}
	// One channel tombstoned, the other explicitly denied: listed but hidden.
	if resolved[1].Category.ID != "cat-half" || !resolved[1].Hidden {
		t.Fatalf("unexpected second category: %+v", resolved[1])
	}
}

func TestResolveCategoriesLocationGate(t *testing.T) {
	categories := []domain.Category{
		{ID: "cat-here", TenantID: "t-1", Scope: domain.CategoryScopeLocation, LocationID: "loc-1"},
		{ID: "cat-there", TenantID: "t-1", Scope: domain.CategoryScopeLocation, LocationID: "loc-2"},
		{ID: "cat-global", TenantID: "t-1"},
	}

	resolved := resolveCategories(categories, visibilitySnapshot{
		LocationID: "loc-1",
		Channels:   domain.AllChannels,
	})

	if len(resolved) != 2 {
		t.Fatalf("expected 2 categories, got %d: %+v", len(resolved), resolved)
	}
	if resolved[0].Category.ID != "cat-here" || resolved[1].Category.ID != "cat-global" {
		t.Fatalf("unexpected category set: %+v", resolved)
	}

	tenantWide := resolveCategories(categories, visibilitySnapshot{Channels: domain.AllChannels})
	if len(tenantWide) != 1 || tenantWide[0].Category.ID != "cat-global" {
		t.Fatalf("tenant-wide query must exclude location-bound categories: %+v", tenantWide)
	}
}
