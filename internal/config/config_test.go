package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NOTIFY_DELAY", "")
	t.Setenv("CART_STORAGE_KEY", "")
	t.Setenv("CART_IDLE_TTL", "")
	t.Setenv("ENV", "")

	cfg := Load()

	assert.Equal(t, "cartItems", cfg.CartStorageKey)
	assert.Equal(t, 3*time.Second, cfg.NotifyDelay)
	assert.Equal(t, 10*time.Minute, cfg.NotifyCooldown)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 30*time.Minute, cfg.CartIdleTTL)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CART_STORAGE", "sqlite")
	t.Setenv("SEARCH_DEBOUNCE", "150ms")
	t.Setenv("RATE_LIMIT_REQUESTS", "7")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.CartStorage)
	assert.Equal(t, 150*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 7, cfg.RateLimitRequests)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "many")
	t.Setenv("NOTIFY_COOLDOWN", "soon")

	cfg := Load()

	assert.Equal(t, 120, cfg.RateLimitRequests)
	assert.Equal(t, 10*time.Minute, cfg.NotifyCooldown)
}
