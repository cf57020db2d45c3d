// Package search implements search-as-you-type suggestions with a
// debounce window where the last keystroke wins.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/model"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
	"github.com/capitalize-ai/storefront-core/pkg/metrics"
)

// DefaultWindow is the quiet period after the last keystroke.
const DefaultWindow = 300 * time.Millisecond

// Fetcher looks up suggestions for a query.
type Fetcher interface {
	Suggestions(ctx context.Context, query string) ([]model.Suggestion, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, query string) ([]model.Suggestion, error)

// Suggestions calls f.
func (f FetcherFunc) Suggestions(ctx context.Context, query string) ([]model.Suggestion, error) {
	return f(ctx, query)
}

// ResultFunc receives the suggestions for the latest query.
type ResultFunc func(query string, results []model.Suggestion)

// Debouncer issues at most one request per pause in typing. Each keystroke
// supersedes the pending timer and cancels any request still in flight,
// and a response is only applied while its keystroke is still the latest.
type Debouncer struct {
	fetcher  Fetcher
	window   time.Duration
	onResult ResultFunc
	logger   *logger.Logger

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	query   string
	results []model.Suggestion
	closed  bool
}

// NewDebouncer creates a debouncer. onResult may be nil.
func NewDebouncer(fetcher Fetcher, window time.Duration, onResult ResultFunc, log *logger.Logger) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{
		fetcher:  fetcher,
		window:   window,
		onResult: onResult,
		logger:   log,
	}
}

// Type records a keystroke producing query.
func (d *Debouncer) Type(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.seq++
	d.stopLocked()

	query = strings.TrimSpace(query)
	d.query = query
	d.results = nil
	if query == "" {
		return
	}

	seq := d.seq
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq, query) })
}

func (d *Debouncer) fire(seq uint64, query string) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()

	results, err := d.fetcher.Suggestions(ctx, query)
	cancel()

	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		metrics.SuggestionRequestsTotal.WithLabelValues("stale").Inc()
		return
	}
	d.cancel = nil
	if err != nil {
		d.logger.Debug("suggestion lookup failed", zap.String("query", query), zap.Error(err))
		metrics.SuggestionRequestsTotal.WithLabelValues("error").Inc()
		results = nil
	} else {
		metrics.SuggestionRequestsTotal.WithLabelValues("ok").Inc()
	}
	if results == nil {
		results = []model.Suggestion{}
	}
	d.results = results
	onResult := d.onResult
	d.mu.Unlock()

	if onResult != nil {
		onResult(query, results)
	}
}

// stopLocked cancels the pending timer and the in-flight request.
func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Results returns the latest query and its suggestions. Results are nil
// until a lookup for the current query has completed.
func (d *Debouncer) Results() (string, []model.Suggestion) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query, d.results
}

// Close cancels pending work. Later keystrokes are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.seq++
	d.stopLocked()
}
