package nats

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/storefront-core/internal/cart"
)

// CartStorage persists carts in a JetStream key/value bucket. Keys are
// stored base64url-encoded because shopper IDs taken from token subjects
// may hold characters KV keys reject, such as '|' or '@'.
type CartStorage struct {
	kv jetstream.KeyValue
}

// EnsureCartBucket opens the cart bucket, creating it on first use.
func EnsureCartBucket(ctx context.Context, client *Client, bucket string) (*CartStorage, error) {
	js := client.JetStream()

	kv, err := js.KeyValue(ctx, bucket)
	if err == nil {
		return &CartStorage{kv: kv}, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucket, err)
	}

	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Shopper carts keyed by base64url(<shopper>.<storage key>)",
		History:     1,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	return &CartStorage{kv: kv}, nil
}

// NewCartStorage wraps an existing bucket.
func NewCartStorage(kv jetstream.KeyValue) *CartStorage {
	return &CartStorage{kv: kv}
}

// Get returns the latest value for key.
func (s *CartStorage) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return entry.Value(), nil
}

// Put stores value under key.
func (s *CartStorage) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(ctx, kvKey(key), value); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func kvKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
