package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/bus"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

// Bus carries add-to-cart events over core NATS subjects so a widget
// connected to one replica can reach the cart owned by another.
type Bus struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// NewBus creates a bus on the client's connection.
func NewBus(client *Client, log *logger.Logger) *Bus {
	return &Bus{conn: client.Conn(), logger: log}
}

// PublishAddToCart publishes ev as JSON on topic.
func (b *Bus) PublishAddToCart(ctx context.Context, topic string, ev model.AddToCartEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// SubscribeAddToCart subscribes h to topic. Undecodable payloads are
// logged and dropped.
func (b *Bus) SubscribeAddToCart(topic string, h bus.Handler) (bus.Unsubscribe, error) {
	sub, err := b.conn.Subscribe(topic, func(msg *nats.Msg) {
		var ev model.AddToCartEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.logger.Warn("dropping malformed add-to-cart event",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			return
		}
		h(context.Background(), ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	return func() error {
		if !sub.IsValid() {
			return nil
		}
		return sub.Unsubscribe()
	}, nil
}
