// Package backend is the HTTP client for the external storefront API:
// product listings, search suggestions and the assistant /chat endpoint.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/metrics"
	"github.com/capitalize-ai/storefront-core/pkg/tracing"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
}

// Client calls the storefront backend. Cookies set by the backend are kept
// and sent back so the assistant can correlate a running conversation.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a client for baseURL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}, nil
}

// Products returns GET /api/products?category=<category>.
func (c *Client) Products(ctx context.Context, category string) ([]model.Product, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}

	var products []model.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", q, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Suggestions returns GET /api/search-suggestions?query=<query>.
func (c *Client) Suggestions(ctx context.Context, query string) ([]model.Suggestion, error) {
	q := url.Values{}
	q.Set("query", query)

	var suggestions []model.Suggestion
	if err := c.do(ctx, http.MethodGet, "/api/search-suggestions", q, nil, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Chat posts one user turn to /chat.
func (c *Client) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	var reply model.ChatReply
	if err := c.do(ctx, http.MethodPost, "/chat", nil, req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, span := tracing.Tracer("backend").Start(ctx, "backend "+method+" "+path)
	defer span.End()

	u := *c.baseURL
	u.Path = u.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(path, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	metrics.BackendRequestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		span.SetStatus(codes.Error, resp.Status)
		return &StatusError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
