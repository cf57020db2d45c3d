// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// ShopperIDKey is the context key for the shopper ID.
	ShopperIDKey ContextKey = "shopper_id"
)

// Claims represents JWT claims. The subject is the shopper ID.
type Claims struct {
	jwt.RegisteredClaims
}

// Auth creates JWT authentication middleware. Browsers cannot set headers
// on WebSocket upgrades, so the token is also accepted in the "token" query
// parameter.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, "missing authorization header")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid {
				writeAuthError(w, "invalid token")
				return
			}
			if ValidateShopperID(claims.Subject) != nil {
				writeAuthError(w, "invalid token subject")
				return
			}

			recordShopper(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(WithShopperID(r.Context(), claims.Subject)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get("token")
		return token, token != ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

// GetShopperID gets the shopper ID from context.
func GetShopperID(ctx context.Context) string {
	if v, ok := ctx.Value(ShopperIDKey).(string); ok {
		return v
	}
	return ""
}

// WithShopperID returns ctx carrying shopperID.
func WithShopperID(ctx context.Context, shopperID string) context.Context {
	return context.WithValue(ctx, ShopperIDKey, shopperID)
}
