package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/model"
)

// CorrectionSink persists corrections. Implementations must be safe for
// concurrent use.
type CorrectionSink interface {
	RecordCorrection(ctx context.Context, correction model.Correction) error
}

// SubmitCorrection validates a correction against the live taxonomy, fills
// in its id and timestamp, and forwards it to the configured sink. The
// returned correction is the one handed to the sink.
func (e *Engine) SubmitCorrection(ctx context.Context, c model.Correction) (model.Correction, error) {
	tax := e.Taxonomy()

	c.Description = strings.TrimSpace(c.Description)
	if c.Description == "" {
		return model.Correction{}, fmt.Errorf("%w: description is required", common.ErrInvalidCorrection)
	}
	if !tax.Contains(c.CorrectedCategoryID) {
		return model.Correction{}, fmt.Errorf("%w: corrected category %q is not in the taxonomy",
			common.ErrInvalidCorrection, c.CorrectedCategoryID)
	}
	if c.PredictedCategoryID != model.UnknownCategoryID && !tax.Contains(c.PredictedCategoryID) {
		return model.Correction{}, fmt.Errorf("%w: predicted category %q is not in the taxonomy",
			common.ErrInvalidCorrection, c.PredictedCategoryID)
	}
	if e.sink == nil {
		return model.Correction{}, fmt.Errorf("%w: no correction sink configured", common.ErrSinkClosed)
	}

	if c.ID == "" {
		c.ID = e.newID()
	}
	if c.RecordedAt.IsZero() {
		c.RecordedAt = e.now().UTC()
	}

	if err := e.sink.RecordCorrection(ctx, c); err != nil {
		return model.Correction{}, fmt.Errorf("failed to record correction: %w", err)
	}
	return c, nil
}

const (
	defaultSinkBuffer   = 256
	defaultDrainTimeout = 5 * time.Second
)

// SinkOption configures an AsyncSink.
type SinkOption func(*AsyncSink)

// WithSinkBuffer sets the queue capacity.
func WithSinkBuffer(n int) SinkOption {
	return func(a *AsyncSink) { a.bufSize = n }
}

// WithSinkErrorHandler sets the callback for writes that fail after retries.
// The default logs a warning.
func WithSinkErrorHandler(f func(model.Correction, error)) SinkOption {
	return func(a *AsyncSink) { a.errFunc = f }
}

// WithDropOnFull makes RecordCorrection drop the correction instead of
// blocking when the queue is full.
func WithDropOnFull() SinkOption {
	return func(a *AsyncSink) { a.dropOnFull = true }
}

// WithSinkRetry sets the retry policy applied to each write.
func WithSinkRetry(opts common.RetryOptions) SinkOption {
	return func(a *AsyncSink) { a.retry = opts }
}

// AsyncSink queues corrections and writes them to an inner sink from a
// background goroutine, so callers never wait on storage.
type AsyncSink struct {
	inner      CorrectionSink
	ch         chan model.Correction
	done       chan struct{}
	errFunc    func(model.Correction, error)
	retry      common.RetryOptions
	mu         sync.RWMutex
	bufSize    int
	closed     bool
	dropOnFull bool
}

// NewAsyncSink wraps inner and starts draining immediately.
func NewAsyncSink(inner CorrectionSink, opts ...SinkOption) *AsyncSink {
	a := &AsyncSink{
		inner:   inner,
		bufSize: defaultSinkBuffer,
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2,
		},
		errFunc: func(c model.Correction, err error) {
			slog.Warn("correction write failed", "id", c.ID, "error", err)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.Correction, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// RecordCorrection enqueues the correction. It blocks while the queue is full
// unless the sink drops on full, and fails once the sink is closed.
func (a *AsyncSink) RecordCorrection(ctx context.Context, c model.Correction) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return common.ErrSinkClosed
	}

	if a.dropOnFull {
		select {
		case a.ch <- c:
		default:
			slog.Warn("correction queue full, dropping correction", "id", c.ID)
		}
		return nil
	}

	select {
	case a.ch <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting corrections and waits for the queue to drain.
func (a *AsyncSink) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-time.After(defaultDrainTimeout):
		slog.Warn("correction queue drain timed out")
		return fmt.Errorf("correction queue drain timed out")
	}
}

func (a *AsyncSink) drain() {
	defer close(a.done)
	for c := range a.ch {
		err := common.WithRetry(context.Background(), a.retry, func(ctx context.Context) error {
			return a.inner.RecordCorrection(ctx, c)
		})
		if err != nil {
			a.errFunc(c, err)
		}
	}
}
