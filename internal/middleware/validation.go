package middleware

import (
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/capitalize-ai/storefront-core/internal/catalog"
	"github.com/capitalize-ai/storefront-core/internal/model"
)

const (
	maxMessageLength = 4000
	maxQueryLength   = 200
	maxIDLength      = 128
	maxPrice         = 1_000_000
)

// ValidateMessageText validates a chat message typed by the shopper.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("text cannot be empty")
	}
	if len(text) > maxMessageLength {
		return errors.New("text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	return nil
}

// ValidateInstanceID validates a chat instance ID.
func ValidateInstanceID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid instance ID format")
	}
	return nil
}

// ValidateShopperID validates a shopper ID.
func ValidateShopperID(id string) error {
	if len(id) == 0 {
		return errors.New("shopper ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("shopper ID exceeds maximum length")
	}
	if strings.ContainsAny(id, "./\\ *>") {
		return errors.New("shopper ID contains invalid characters")
	}
	return nil
}

// ValidateItemID validates a cart item ID.
func ValidateItemID(id string) error {
	if len(id) == 0 {
		return errors.New("item ID cannot be empty")
	}
	if len(id) > maxIDLength {
		return errors.New("item ID exceeds maximum length")
	}
	return nil
}

// ValidateQuery validates a search query.
func ValidateQuery(query string) error {
	if len(query) > maxQueryLength {
		return errors.New("query exceeds maximum length")
	}
	if !utf8.ValidString(query) {
		return errors.New("query must be valid UTF-8")
	}
	return nil
}

// ValidateAddToCart validates an add-to-cart request. A zero quantity means
// one; prices must be finite, non-negative and whole cents.
func ValidateAddToCart(req *model.AddToCartRequest) error {
	if len(req.ID) > maxIDLength || len(req.Name) > maxIDLength {
		return errors.New("item ID or name exceeds maximum length")
	}
	if req.Quantity < 0 || req.Quantity > model.MaxQuantity {
		return errors.New("quantity out of range")
	}

	if f, ok := req.Price.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0) || f < 0) {
		return errors.New("price must be a non-negative number")
	}
	price := catalog.ParsePrice(req.Price)
	if price > maxPrice {
		return errors.New("price exceeds maximum")
	}
	if cents := price * 100; math.Abs(cents-math.Round(cents)) > 1e-6 {
		return errors.New("price must have at most two decimals")
	}
	return nil
}
