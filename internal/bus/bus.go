// Package bus carries add-to-cart events from the chat widget to the cart
// store without either side holding a reference to the other.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/capitalize-ai/storefront-core/internal/model"
)

// SubjectPrefix prefixes every add-to-cart topic.
const SubjectPrefix = "storefront.chat"

// Topic returns the add-to-cart topic for one mounted chat session.
func Topic(instanceID string) string {
	return fmt.Sprintf("%s.%s.cart.add", SubjectPrefix, instanceID)
}

// Handler consumes an add-to-cart event.
type Handler func(ctx context.Context, ev model.AddToCartEvent)

// Unsubscribe removes a subscription. It is safe to call more than once.
type Unsubscribe func() error

// Bus publishes and subscribes add-to-cart events by topic.
type Bus interface {
	PublishAddToCart(ctx context.Context, topic string, ev model.AddToCartEvent) error
	SubscribeAddToCart(topic string, h Handler) (Unsubscribe, error)
}

// LocalBus delivers events synchronously inside the process.
type LocalBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[uint64]Handler)}
}

// PublishAddToCart calls every handler subscribed to topic.
func (b *LocalBus) PublishAddToCart(ctx context.Context, topic string, ev model.AddToCartEvent) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	return nil
}

// SubscribeAddToCart registers h for topic.
func (b *LocalBus) SubscribeAddToCart(topic string, h Handler) (Unsubscribe, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	b.subs[topic][id] = h

	var once sync.Once
	return func() error {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
		return nil
	}, nil
}

// Subscribers returns the number of handlers on topic.
func (b *LocalBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
