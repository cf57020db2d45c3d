// Package model defines data structures for the storefront core.
package model

import "math"

// DefaultImage is the placeholder shown when a product has no image.
const DefaultImage = "/images/default-product.png"

// MaxQuantity caps a single cart line.
const MaxQuantity = 999

// CartItem is one line of the shopper's cart.
type CartItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// CartState holds the ordered cart lines. Insertion order is display order.
type CartState struct {
	CartItems []CartItem `json:"cartItems"`
}

// ItemCount is the sum of quantities.
func (s CartState) ItemCount() int {
	n := 0
	for _, it := range s.CartItems {
		n += it.Quantity
	}
	return n
}

// CartTotal is the sum of price×quantity. Lines are summed in cents so
// totals of two-decimal prices are exact. Prices are expected to carry at
// most two decimals; finer fractions are rounded to the cent per unit.
func (s CartState) CartTotal() float64 {
	var cents int64
	for _, it := range s.CartItems {
		cents += int64(math.Round(it.Price*100)) * int64(it.Quantity)
	}
	return float64(cents) / 100
}

// Find returns the index of the item with id, or -1.
func (s CartState) Find(id string) int {
	for i, it := range s.CartItems {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// CartView is the cart as returned to clients, with derived totals.
type CartView struct {
	CartItems []CartItem `json:"cartItems"`
	ItemCount int        `json:"itemCount"`
	CartTotal float64    `json:"cartTotal"`
}

// View builds the client representation of s.
func (s CartState) View() CartView {
	items := s.CartItems
	if items == nil {
		items = []CartItem{}
	}
	return CartView{
		CartItems: items,
		ItemCount: s.ItemCount(),
		CartTotal: s.CartTotal(),
	}
}

// AddToCartRequest is the body of POST /cart/items. Price may be a number
// or a currency-formatted string.
type AddToCartRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Price    any    `json:"price"`
	Image    string `json:"image,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// CheckoutResponse confirms a completed checkout.
type CheckoutResponse struct {
	OrderID   string   `json:"order_id"`
	Status    string   `json:"status"`
	ItemCount int      `json:"item_count"`
	Total     float64  `json:"total"`
	Message   string   `json:"message"`
	Cart      CartView `json:"cart"`
}
