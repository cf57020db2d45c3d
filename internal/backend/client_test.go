package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/storefront-core/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestClient_Products(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "phone", r.URL.Query().Get("category"))
		w.Write([]byte(`[{"name":"iPhone 16","price":"$999","category":"phone"}]`))
	}))

	products, err := c.Products(context.Background(), "phone")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "iPhone 16", products[0].Name)
	assert.Equal(t, "$999", products[0].Price)
}

func TestClient_Suggestions(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search-suggestions", r.URL.Path)
		assert.Equal(t, "app le", r.URL.Query().Get("query"))
		w.Write([]byte(`[{"name":"Apple Watch","category":"watch"}]`))
	}))

	got, err := c.Suggestions(context.Background(), "app le")
	require.NoError(t, err)
	assert.Equal(t, []model.Suggestion{{Name: "Apple Watch", Category: "watch"}}, got)
}

func TestClient_ChatSendsCookiesBack(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)

		var req model.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "inst-1", req.InstanceID)

		if calls == 1 {
			assert.True(t, req.NewChat)
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		} else {
			cookie, err := r.Cookie("session")
			require.NoError(t, err)
			assert.Equal(t, "abc", cookie.Value)
		}
		w.Write([]byte(`{"reply":"hello","isHtml":false}`))
	}))

	ctx := context.Background()
	reply, err := c.Chat(ctx, model.ChatRequest{Message: "hi", NewChat: true, InstanceID: "inst-1"})
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Reply)

	_, err = c.Chat(ctx, model.ChatRequest{Message: "again", InstanceID: "inst-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClient_StatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))

	_, err := c.Products(context.Background(), "")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestClient_MalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))

	_, err := c.Chat(context.Background(), model.ChatRequest{Message: "x"})
	require.Error(t, err)
}
