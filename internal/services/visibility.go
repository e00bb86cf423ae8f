package services

import (
	domain "github.com/qravy/storefront-api/internal/domain"
)

// visibilitySnapshot is the immutable per-request input of the resolver. It is
// assembled once from the batched reads and never mutated afterwards, so
// resolution stays deterministic and idempotent.
type visibilitySnapshot struct {
	LocationID       string
	Channels         []domain.Channel
	Categories       map[string]domain.Category
	Items            []domain.MenuItem
	CategoryOverlays domain.OverlaySet
	ItemOverlays     domain.OverlaySet
}

// channelVerdict is the outcome of evaluating one item on one channel.
type channelVerdict int

const (
	// verdictSkip removes the channel from consideration entirely.
	verdictSkip channelVerdict = iota
	// verdictPresent keeps the item in the output without making it orderable.
	verdictPresent
	// verdictActive marks the item orderable; one active channel suffices.
	verdictActive
)

// itemChannelInput is what one evaluator sees. Category is nil when the item
// has no category or references one that no longer exists; that layer then
// imposes no restriction.
type itemChannelInput struct {
	Channel          domain.Channel
	Category         *domain.Category
	Item             domain.MenuItem
	CategoryOverlays domain.OverlaySet
	ItemOverlays     domain.OverlaySet
}

// itemEvaluator inspects one channel of one item. A true decided flag stops
// the chain; a false one passes the input to the next rule.
type itemEvaluator struct {
	name string
	eval func(in itemChannelInput) (channelVerdict, bool)
}

// itemEvaluators is the precedence chain for per-channel item visibility.
// Order is load-bearing: category authority strictly dominates item authority,
// so a category veto suppresses an item regardless of its own overrides.
var itemEvaluators = []itemEvaluator{
	{
		name: "category-channel-scope",
		eval: func(in itemChannelInput) (channelVerdict, bool) {
			if in.Category != nil && !in.Category.ChannelScope.Allows(in.Channel) {
				return verdictSkip, true
			}
			return verdictSkip, false
		},
	},
	{
		name: "category-tombstone",
		eval: func(in itemChannelInput) (channelVerdict, bool) {
			if in.Category != nil && in.CategoryOverlays.Decision(in.Category.ID, in.Channel).Removed() {
				return verdictSkip, true
			}
			return verdictSkip, false
		},
	},
	{
		name: "category-veto",
		eval: func(in itemChannelInput) (channelVerdict, bool) {
			if in.Category != nil && in.CategoryOverlays.Decision(in.Category.ID, in.Channel).ExplicitFalse() {
				return verdictPresent, true
			}
			return verdictSkip, false
		},
	},
	{
		name: "item-tombstone",
		eval: func(in itemChannelInput) (channelVerdict, bool) {
			if in.ItemOverlays.Decision(in.Item.ID, in.Channel).Removed() {
				return verdictSkip, true
			}
			return verdictSkip, false
		},
	},
	{
		name: "baseline-override",
		eval: func(in itemChannelInput) (channelVerdict, bool) {
			decision := in.ItemOverlays.Decision(in.Item.ID, in.Channel)
			if !in.Item.Baseline.Enabled(in.Channel) {
				// A disabled baseline needs an explicit opt-in to resurrect,
				// so stale overlay data cannot accidentally re-enable an item.
				if decision.ExplicitTrue() {
					return verdictActive, true
				}
				return verdictPresent, true
			}
			if decision.Kind == domain.OverlayExplicit && !decision.Value {
				return verdictPresent, true
			}
			return verdictActive, true
		},
	},
}

// evaluateItemChannel runs the precedence chain for one (item, channel) pair.
func evaluateItemChannel(in itemChannelInput) channelVerdict {
	for _, rule := range itemEvaluators {
		if verdict, decided := rule.eval(in); decided {
			return verdict
		}
	}
	return verdictSkip
}

// resolveItems computes the final item verdicts for a snapshot. Input order is
// preserved; items never present on any evaluated channel are excluded.
func resolveItems(snap visibilitySnapshot) []domain.ResolvedItem {
	resolved := make([]domain.ResolvedItem, 0, len(snap.Items))
	for _, item := range snap.Items {
		category := snapshotCategory(snap, item.CategoryID)
		if category != nil && category.LocationBound() && category.LocationID != snap.LocationID {
			continue
		}

		present := false
		active := false
		for _, channel := range snap.Channels {
			verdict := evaluateItemChannel(itemChannelInput{
				Channel:          channel,
				Category:         category,
				Item:             item,
				CategoryOverlays: snap.CategoryOverlays,
				ItemOverlays:     snap.ItemOverlays,
			})
			switch verdict {
			case verdictPresent:
				present = true
			case verdictActive:
				present = true
				active = true
			}
			if active {
				break
			}
		}
		if !present {
			continue
		}

		status := domain.ItemStatusActive
		if !active {
			status = domain.ItemStatusHidden
		}
		resolved = append(resolved, domain.ResolvedItem{
			Item:   item,
			Hidden: !active,
			Status: status,
		})
	}
	return resolved
}

// resolveCategories computes the list-view verdict for each category in input
// order. A location-bound category outside the resolved location is excluded
// outright. With a single queried channel the category is omitted when its
// scope excludes that channel or a tombstone removes it; with both channels it
// stays listed unless every scope-allowed channel is tombstoned, and is hidden
// only when no surviving channel resolves visible.
func resolveCategories(categories []domain.Category, snap visibilitySnapshot) []domain.ResolvedCategory {
	resolved := make([]domain.ResolvedCategory, 0, len(categories))
	for _, category := range categories {
		if category.LocationBound() && category.LocationID != snap.LocationID {
			continue
		}

		if len(snap.Channels) == 1 {
			channel := snap.Channels[0]
			if !category.ChannelScope.Allows(channel) {
				continue
			}
			decision := snap.CategoryOverlays.Decision(category.ID, channel)
			if decision.Removed() {
				continue
			}
			resolved = append(resolved, domain.ResolvedCategory{
				Category: category,
				Hidden:   decision.ExplicitFalse(),
			})
			continue
		}

		surviving := 0
		visible := false
		for _, channel := range snap.Channels {
			if !category.ChannelScope.Allows(channel) {
				continue
			}
			decision := snap.CategoryOverlays.Decision(category.ID, channel)
			if decision.Removed() {
				continue
			}
			surviving++
			if !decision.ExplicitFalse() {
				visible = true
			}
		}
		if surviving == 0 {
			continue
		}
		resolved = append(resolved, domain.ResolvedCategory{
			Category: category,
			Hidden:   !visible,
		})
	}
	return resolved
}

func snapshotCategory(snap visibilitySnapshot, categoryID string) *domain.Category {
	if categoryID == "" {
		return nil
	}
	category, ok := snap.Categories[categoryID]
	if !ok {
		return nil
	}
	return &category
}
