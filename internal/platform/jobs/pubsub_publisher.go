package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/qravy/storefront-api/internal/domain"
)

// PubSubMenuEventPublisher publishes storefront menu analytics events to a Pub/Sub topic.
type PubSubMenuEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubMenuEventPublisher constructs a Pub/Sub backed menu event publisher.
func NewPubSubMenuEventPublisher(topic *pubsub.Topic) (*PubSubMenuEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub menu event publisher: topic is required")
	}
	return &PubSubMenuEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishMenuViewed enqueues a menu viewed event on the configured topic.
func (p *PubSubMenuEventPublisher) PublishMenuViewed(ctx context.Context, event domain.MenuViewedEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub menu event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal menu viewed event: %w", err)
	}

	attrs := map[string]string{"eventType": "storefront.menu.viewed"}
	setAttr(attrs, "snapshotId", event.SnapshotID)
	setAttr(attrs, "tenantId", event.TenantID)
	setAttr(attrs, "tenantSlug", event.TenantSlug)
	setAttr(attrs, "locationId", event.LocationID)
	setAttr(attrs, "channel", event.Channel)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish menu viewed event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
