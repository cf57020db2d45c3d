// Package assistant talks to the shopping assistant: either the remote
// /chat endpoint of the storefront backend or an LLM provider directly.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/llm"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
	"github.com/capitalize-ai/storefront-core/pkg/metrics"
	"github.com/capitalize-ai/storefront-core/pkg/tracing"
)

// Client sends one user turn and returns the assistant reply.
type Client interface {
	Chat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error)
}

// Forgetter is implemented by clients that keep per-instance state.
type Forgetter interface {
	Forget(instanceID string)
}

// SystemPrompt makes the model answer product questions in the bullet
// format the widget turns into product cards.
const SystemPrompt = `You are the shopping assistant of an electronics store selling phones, laptops and TVs.
When recommending products, start with a short sentence beginning with "Here are" and then list each product on its own line as:
• <product name> - $<price> - Key features: <feature>, <feature>, <feature>
Use plain text only. Keep other answers short and friendly.`

const defaultMaxTurns = 20

// LLM answers chats with an llm.Client, keeping a short history per chat
// instance. A request with NewChat set starts a fresh history.
type LLM struct {
	client   llm.Client
	model    string
	maxTurns int
	logger   *logger.Logger

	mu        sync.Mutex
	histories map[string][]llm.ChatMessage
}

// NewLLM creates an LLM-backed assistant.
func NewLLM(client llm.Client, modelName string, log *logger.Logger) *LLM {
	return &LLM{
		client:    client,
		model:     modelName,
		maxTurns:  defaultMaxTurns,
		logger:    log,
		histories: make(map[string][]llm.ChatMessage),
	}
}

// Chat sends req.Message with the instance's history.
func (a *LLM) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	ctx, span := tracing.Tracer("assistant").Start(ctx, "assistant.llm.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.instance_id", req.InstanceID),
		attribute.Bool("chat.new_chat", req.NewChat),
		attribute.String("llm.provider", a.client.Name()),
	)

	a.mu.Lock()
	if req.NewChat {
		delete(a.histories, req.InstanceID)
	}
	history := append(append([]llm.ChatMessage(nil), a.histories[req.InstanceID]...), llm.ChatMessage{
		Role:    "user",
		Content: req.Message,
	})
	a.mu.Unlock()

	start := time.Now()
	resp, err := a.client.Complete(ctx, &llm.CompletionRequest{
		Model:       a.model,
		System:      SystemPrompt,
		Messages:    history,
		MaxTokens:   1024,
		Temperature: 0.3,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s completion failed: %w", a.client.Name(), err)
	}
	metrics.RecordLLM(resp.Model, resp.TokensIn, resp.TokensOut)

	reply := strings.TrimSpace(resp.Content)
	history = append(history, llm.ChatMessage{Role: "assistant", Content: reply})
	if over := len(history) - a.maxTurns*2; over > 0 {
		history = history[over:]
	}

	a.mu.Lock()
	a.histories[req.InstanceID] = history
	a.mu.Unlock()

	a.logger.Debug("assistant reply",
		zap.String("instance_id", req.InstanceID),
		zap.String("model", resp.Model),
		zap.Duration("latency", time.Since(start)),
	)

	return &model.ChatReply{Reply: reply}, nil
}

// Forget drops the history of a chat instance.
func (a *LLM) Forget(instanceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.histories, instanceID)
}
