package model

import (
	"time"
)

// AddToCartEvent asks the shopper's cart store to add one item. It is
// published by the chat widget when an add-to-cart button in the transcript
// is clicked.
type AddToCartEvent struct {
	InstanceID string    `json:"instance_id"`
	ShopperID  string    `json:"shopper_id"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Image      string    `json:"image"`
	CreatedAt  time.Time `json:"created_at"`
}

// Item returns the cart line carried by the event.
func (e AddToCartEvent) Item() CartItem {
	return CartItem{
		ID:       e.ID,
		Name:     e.Name,
		Price:    e.Price,
		Image:    e.Image,
		Quantity: 1,
	}
}

// WidgetFrame is a message on the widget WebSocket channel, in either
// direction.
type WidgetFrame struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	Category string       `json:"category,omitempty"`
	ID       string       `json:"id,omitempty"`
	Query    string       `json:"query,omitempty"`
	Visible  *bool        `json:"visible,omitempty"`
	Message  *ChatMessage `json:"message,omitempty"`
	Results  []Suggestion `json:"results,omitempty"`
	Cart     *CartView    `json:"cart,omitempty"`
	Session  *SessionView `json:"session,omitempty"`
	Error    string       `json:"error,omitempty"`
}
