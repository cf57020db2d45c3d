package middleware

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

const secret = "test-secret"

func mint(t *testing.T, subject, key string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func echoShopper() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetShopperID(r.Context())))
	})
}

func TestAuth(t *testing.T) {
	h := Auth(secret)(echoShopper())

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "bearer header", header: "Bearer " + mint(t, "alice", secret), status: http.StatusOK, body: "alice"},
		{name: "query token", query: "?token=" + mint(t, "bob", secret), status: http.StatusOK, body: "bob"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + mint(t, "alice", "other"), status: http.StatusUnauthorized},
		{name: "bad subject", header: "Bearer " + mint(t, "a.b", secret), status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestLogging_SetsCorrelationID(t *testing.T) {
	var seen string
	h := Logging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-1", seen)
	assert.Equal(t, "corr-1", rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRateLimit_PerShopper(t *testing.T) {
	h := Auth(secret)(RateLimit(2, time.Minute)(echoShopper()))
	alice := "Bearer " + mint(t, "alice", secret)
	bob := "Bearer " + mint(t, "bob", secret)

	do := func(auth string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.Header.Set("Authorization", auth)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(alice))
	assert.Equal(t, http.StatusOK, do(alice))
	assert.Equal(t, http.StatusTooManyRequests, do(alice))
	assert.Equal(t, http.StatusOK, do(bob))
}

func TestValidation(t *testing.T) {
	assert.NoError(t, ValidateMessageText("show me phones"))
	assert.Error(t, ValidateMessageText("  "))
	assert.Error(t, ValidateMessageText(string(make([]byte, maxMessageLength+1))))

	assert.NoError(t, ValidateInstanceID("0190a4c2-7a3e-7b1c-9d2f-3e4a5b6c7d8e"))
	assert.Error(t, ValidateInstanceID("not-a-uuid"))

	assert.NoError(t, ValidateShopperID("shopper-42"))
	assert.Error(t, ValidateShopperID(""))
	assert.Error(t, ValidateShopperID("a>b"))

	assert.NoError(t, ValidateItemID("iphone-16-phone"))
	assert.Error(t, ValidateItemID(""))

	assert.NoError(t, ValidateQuery("app"))
	assert.Error(t, ValidateQuery(string([]byte{0xff})))
}

func TestValidateAddToCart(t *testing.T) {
	tests := []struct {
		name    string
		req     model.AddToCartRequest
		wantErr bool
	}{
		{"formatted price", model.AddToCartRequest{Name: "iPhone 16", Price: "$1,299.99"}, false},
		{"numeric price with quantity", model.AddToCartRequest{ID: "a", Price: 19.99, Quantity: 3}, false},
		{"max quantity", model.AddToCartRequest{ID: "a", Price: 1.0, Quantity: model.MaxQuantity}, false},
		{"quantity overflow", model.AddToCartRequest{ID: "a", Price: 1.0, Quantity: math.MaxInt}, true},
		{"negative quantity", model.AddToCartRequest{ID: "a", Price: 1.0, Quantity: -1}, true},
		{"negative price", model.AddToCartRequest{ID: "a", Price: -50.0}, true},
		{"infinite price", model.AddToCartRequest{ID: "a", Price: math.Inf(1)}, true},
		{"sub-cent price", model.AddToCartRequest{ID: "a", Price: 0.001}, true},
		{"huge price", model.AddToCartRequest{ID: "a", Price: 1e300}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddToCart(&tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func testLogger() *logger.Logger {
	return logger.NewNop()
}
