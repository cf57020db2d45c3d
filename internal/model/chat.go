package model

import "time"

// ChatMessage is one transcript entry.
type ChatMessage struct {
	Text       string `json:"text"`
	IsUser     bool   `json:"isUser"`
	IsHTML     bool   `json:"isHtml"`
	HasButtons bool   `json:"hasButtons"`
}

// ChatRequest is the body sent to the assistant endpoint.
type ChatRequest struct {
	Message    string `json:"message"`
	NewChat    bool   `json:"new_chat"`
	InstanceID string `json:"instance_id"`
}

// ChatReply is the assistant endpoint response.
type ChatReply struct {
	Reply  string `json:"reply"`
	IsHTML bool   `json:"isHtml,omitempty"`
}

// SessionView is the client representation of a chat session.
type SessionView struct {
	InstanceID   string        `json:"instance_id"`
	State        string        `json:"state"`
	Loading      bool          `json:"loading"`
	Notification bool          `json:"notification"`
	Messages     []ChatMessage `json:"messages"`
	CreatedAt    time.Time     `json:"created_at"`
}

// SendMessageRequest is the body of POST /chat/sessions/{id}/messages.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// CartClickRequest is the body of POST /chat/sessions/{id}/cart-clicks.
type CartClickRequest struct {
	ProductID string `json:"product_id"`
}

// SendMessageResponse is returned after a chat round trip.
type SendMessageResponse struct {
	Reply   ChatMessage `json:"reply"`
	Session SessionView `json:"session"`
}
