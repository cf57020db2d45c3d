package cart

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

func roundTrip(t *testing.T, storage Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := storage.Get(ctx, "shopper-1.cartItems")
	require.ErrorIs(t, err, ErrNotFound)

	store := NewStore(ctx, storage, "shopper-1.cartItems", logger.NewNop())
	_, err = store.Dispatch(ctx, Add(model.CartItem{ID: "iphone-16-phone", Name: "iPhone 16", Price: 999, Image: "/i.png"}))
	require.NoError(t, err)
	_, err = store.Dispatch(ctx, Add(model.CartItem{ID: "macbook-air-laptop", Name: "MacBook Air", Price: 1099.5, Image: "/m.png"}))
	require.NoError(t, err)
	_, err = store.Dispatch(ctx, Add(model.CartItem{ID: "iphone-16-phone", Name: "iPhone 16", Price: 999, Image: "/i.png"}))
	require.NoError(t, err)

	reloaded := NewStore(ctx, storage, "shopper-1.cartItems", logger.NewNop()).State()
	assert.Equal(t, store.State(), reloaded)
	require.Len(t, reloaded.CartItems, 2)
	assert.Equal(t, "iphone-16-phone", reloaded.CartItems[0].ID)
	assert.Equal(t, 2, reloaded.CartItems[0].Quantity)

	other := NewStore(ctx, storage, "shopper-2.cartItems", logger.NewNop()).State()
	assert.Empty(t, other.CartItems)
}

func TestMemoryStorage_RoundTrip(t *testing.T) {
	roundTrip(t, NewMemoryStorage())
}

func TestFileStorage_RoundTrip(t *testing.T) {
	fs, err := NewFileStorage(filepath.Join(t.TempDir(), "carts"))
	require.NoError(t, err)
	roundTrip(t, fs)
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)
	defer db.Close()
	roundTrip(t, db)
}

func TestSQLiteStorage_Overwrite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put(ctx, "k", []byte("one")))
	require.NoError(t, db.Put(ctx, "k", []byte("two")))

	got, err := db.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}
