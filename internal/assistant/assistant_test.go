package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/storefront-core/internal/llm"
	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

type fakeLLM struct {
	requests []llm.CompletionRequest
	reply    string
	err      error
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.requests = append(f.requests, *req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: "  " + f.reply + "\n", Model: "fake-1"}, nil
}

func TestLLM_KeepsHistoryPerInstance(t *testing.T) {
	fake := &fakeLLM{reply: "hi"}
	a := NewLLM(fake, "", logger.NewNop())
	ctx := context.Background()

	reply, err := a.Chat(ctx, model.ChatRequest{Message: "hello", NewChat: true, InstanceID: "i1"})
	require.NoError(t, err)
	assert.Equal(t, "hi", reply.Reply)
	assert.False(t, reply.IsHTML)

	_, err = a.Chat(ctx, model.ChatRequest{Message: "phones?", InstanceID: "i1"})
	require.NoError(t, err)
	_, err = a.Chat(ctx, model.ChatRequest{Message: "other", NewChat: true, InstanceID: "i2"})
	require.NoError(t, err)

	require.Len(t, fake.requests, 3)
	assert.Len(t, fake.requests[1].Messages, 3)
	assert.Equal(t, "phones?", fake.requests[1].Messages[2].Content)
	assert.Len(t, fake.requests[2].Messages, 1)
	assert.Equal(t, SystemPrompt, fake.requests[0].System)
}

func TestLLM_NewChatResetsHistory(t *testing.T) {
	fake := &fakeLLM{reply: "ok"}
	a := NewLLM(fake, "m", logger.NewNop())
	ctx := context.Background()

	_, _ = a.Chat(ctx, model.ChatRequest{Message: "one", InstanceID: "i"})
	_, _ = a.Chat(ctx, model.ChatRequest{Message: "two", NewChat: true, InstanceID: "i"})

	assert.Len(t, fake.requests[1].Messages, 1)
	assert.Equal(t, "m", fake.requests[1].Model)
}

func TestLLM_ForgetAndErrors(t *testing.T) {
	fake := &fakeLLM{reply: "ok"}
	a := NewLLM(fake, "", logger.NewNop())
	ctx := context.Background()

	_, _ = a.Chat(ctx, model.ChatRequest{Message: "one", InstanceID: "i"})
	a.Forget("i")
	_, _ = a.Chat(ctx, model.ChatRequest{Message: "two", InstanceID: "i"})
	assert.Len(t, fake.requests[1].Messages, 1)

	fake.err = errors.New("boom")
	_, err := a.Chat(ctx, model.ChatRequest{Message: "three", InstanceID: "i"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fake completion failed")
}
