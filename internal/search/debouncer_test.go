package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
)

type recordingFetcher struct {
	mu      sync.Mutex
	queries []string
	block   map[string]chan struct{}
}

func (f *recordingFetcher) Suggestions(ctx context.Context, query string) ([]model.Suggestion, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	ch := f.block[query]
	f.mu.Unlock()

	if ch != nil {
		<-ch
	}
	return []model.Suggestion{{Name: query + " result"}}, nil
}

func (f *recordingFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func TestDebouncer_OneRequestPerPause(t *testing.T) {
	f := &recordingFetcher{}
	d := NewDebouncer(f, 50*time.Millisecond, nil, logger.NewNop())
	defer d.Close()

	d.Type("a")
	d.Type("ap")
	d.Type("app")

	require.Eventually(t, func() bool {
		_, results := d.Results()
		return results != nil
	}, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"app"}, f.calls())

	query, results := d.Results()
	assert.Equal(t, "app", query)
	assert.Equal(t, []model.Suggestion{{Name: "app result"}}, results)
}

func TestDebouncer_StaleResponseIgnored(t *testing.T) {
	release := make(chan struct{})
	f := &recordingFetcher{block: map[string]chan struct{}{"slow": release}}

	var mu sync.Mutex
	var delivered []string
	d := NewDebouncer(f, 10*time.Millisecond, func(q string, _ []model.Suggestion) {
		mu.Lock()
		delivered = append(delivered, q)
		mu.Unlock()
	}, logger.NewNop())
	defer d.Close()

	d.Type("slow")
	require.Eventually(t, func() bool { return len(f.calls()) == 1 }, time.Second, 2*time.Millisecond)

	d.Type("fast")
	require.Eventually(t, func() bool {
		q, results := d.Results()
		return q == "fast" && results != nil
	}, time.Second, 2*time.Millisecond)

	close(release)
	time.Sleep(50 * time.Millisecond)

	query, results := d.Results()
	assert.Equal(t, "fast", query)
	assert.Equal(t, []model.Suggestion{{Name: "fast result"}}, results)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"fast"}, delivered)
}

func TestDebouncer_NewKeystrokeCancelsInFlight(t *testing.T) {
	cancelled := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, query string) ([]model.Suggestion, error) {
		if query == "first" {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		}
		return nil, nil
	})

	d := NewDebouncer(fetcher, 10*time.Millisecond, nil, logger.NewNop())
	defer d.Close()

	d.Type("first")
	time.Sleep(40 * time.Millisecond)
	d.Type("second")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight request was not cancelled")
	}
}

func TestDebouncer_NewQueryDropsPreviousResults(t *testing.T) {
	f := &recordingFetcher{}
	d := NewDebouncer(f, 30*time.Millisecond, nil, logger.NewNop())
	defer d.Close()

	d.Type("app")
	require.Eventually(t, func() bool {
		_, results := d.Results()
		return results != nil
	}, time.Second, 5*time.Millisecond)

	d.Type("tv")
	query, results := d.Results()
	assert.Equal(t, "tv", query)
	assert.Nil(t, results)

	require.Eventually(t, func() bool {
		_, results := d.Results()
		return results != nil
	}, time.Second, 5*time.Millisecond)
	_, results = d.Results()
	assert.Equal(t, []model.Suggestion{{Name: "tv result"}}, results)
}

func TestDebouncer_EmptyQueryClears(t *testing.T) {
	f := &recordingFetcher{}
	d := NewDebouncer(f, 10*time.Millisecond, nil, logger.NewNop())
	defer d.Close()

	d.Type("tv")
	d.Type("   ")
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, f.calls())
	query, results := d.Results()
	assert.Equal(t, "", query)
	assert.Nil(t, results)
}

func TestDebouncer_CloseCancelsPendingTimer(t *testing.T) {
	f := &recordingFetcher{}
	d := NewDebouncer(f, 20*time.Millisecond, nil, logger.NewNop())

	d.Type("laptop")
	d.Close()
	d.Type("tv")
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, f.calls())
}
