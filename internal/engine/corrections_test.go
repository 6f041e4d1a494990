package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) RecordCorrection(ctx context.Context, c model.Correction) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func TestEngine_SubmitCorrection(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		correction model.Correction
		wantErr    error
		name       string
	}{
		{
			name: "valid correction",
			correction: model.Correction{
				Description:         " Starbucks Cafe 42 ",
				PredictedCategoryID: "GROCERIES",
				CorrectedCategoryID: "RESTAURANTS",
			},
		},
		{
			name: "correcting an abstention",
			correction: model.Correction{
				Description:         "xyz qwq 999",
				PredictedCategoryID: model.UnknownCategoryID,
				CorrectedCategoryID: "SHOPPING",
			},
		},
		{
			name: "corrected to unknown is rejected",
			correction: model.Correction{
				Description:         "xyz",
				PredictedCategoryID: "SHOPPING",
				CorrectedCategoryID: model.UnknownCategoryID,
			},
			wantErr: common.ErrInvalidCorrection,
		},
		{
			name: "unknown predicted id",
			correction: model.Correction{
				Description:         "xyz",
				PredictedCategoryID: "PETS",
				CorrectedCategoryID: "SHOPPING",
			},
			wantErr: common.ErrInvalidCorrection,
		},
		{
			name: "blank description",
			correction: model.Correction{
				Description:         "  ",
				PredictedCategoryID: "SHOPPING",
				CorrectedCategoryID: "SHOPPING",
			},
			wantErr: common.ErrInvalidCorrection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &mockSink{}
			e := starbucksWalmartEngine(t, WithCorrectionSink(sink), WithClock(func() time.Time { return fixed }))
			if tt.wantErr == nil {
				sink.On("RecordCorrection", mock.Anything, mock.MatchedBy(func(c model.Correction) bool {
					return c.ID != "" && c.RecordedAt.Equal(fixed) && c.CorrectedCategoryID == tt.correction.CorrectedCategoryID
				})).Return(nil).Once()
			}

			got, err := e.SubmitCorrection(context.Background(), tt.correction)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				sink.AssertNotCalled(t, "RecordCorrection", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, fixed, got.RecordedAt)
			assert.Equal(t, strings.TrimSpace(tt.correction.Description), got.Description)
			sink.AssertExpectations(t)
		})
	}
}

func TestEngine_SubmitCorrection_SinkFailure(t *testing.T) {
	sink := &mockSink{}
	sink.On("RecordCorrection", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	e := starbucksWalmartEngine(t, WithCorrectionSink(sink))

	_, err := e.SubmitCorrection(context.Background(), model.Correction{
		Description:         "Starbucks",
		PredictedCategoryID: "RESTAURANTS",
		CorrectedCategoryID: "GROCERIES",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestEngine_SubmitCorrection_NoSink(t *testing.T) {
	e := starbucksWalmartEngine(t)

	_, err := e.SubmitCorrection(context.Background(), model.Correction{
		Description:         "Starbucks",
		PredictedCategoryID: "RESTAURANTS",
		CorrectedCategoryID: "GROCERIES",
	})
	assert.ErrorIs(t, err, common.ErrSinkClosed)
}

// recordingSink collects corrections and can be told to fail a number of times.
type recordingSink struct {
	failures int
	got      []model.Correction
	mu       sync.Mutex
}

func (r *recordingSink) RecordCorrection(_ context.Context, c model.Correction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("transient")
	}
	r.got = append(r.got, c)
	return nil
}

func (r *recordingSink) recorded() []model.Correction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Correction, len(r.got))
	copy(out, r.got)
	return out
}

var fastRetry = common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

func TestAsyncSink_DrainsInOrder(t *testing.T) {
	inner := &recordingSink{failures: 1}
	sink := NewAsyncSink(inner, WithSinkBuffer(4), WithSinkRetry(fastRetry))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, sink.RecordCorrection(context.Background(), model.Correction{ID: id}))
	}
	require.NoError(t, sink.Close())

	got := inner.recorded()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestAsyncSink_ReportsPersistentFailures(t *testing.T) {
	inner := &mockSink{}
	inner.On("RecordCorrection", mock.Anything, mock.Anything).Return(errors.New("locked"))

	var failed []string
	sink := NewAsyncSink(inner,
		WithSinkRetry(fastRetry),
		WithSinkErrorHandler(func(c model.Correction, err error) {
			assert.ErrorIs(t, err, common.ErrMaxRetries)
			failed = append(failed, c.ID)
		}))

	require.NoError(t, sink.RecordCorrection(context.Background(), model.Correction{ID: "x"}))
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{"x"}, failed)
	inner.AssertNumberOfCalls(t, "RecordCorrection", 3)
}

func TestAsyncSink_DoesNotRetryDuplicates(t *testing.T) {
	inner := &mockSink{}
	inner.On("RecordCorrection", mock.Anything, mock.Anything).Return(common.ErrDuplicateEntry)

	var failures []error
	sink := NewAsyncSink(inner,
		WithSinkRetry(fastRetry),
		WithSinkErrorHandler(func(_ model.Correction, err error) {
			failures = append(failures, err)
		}))

	require.NoError(t, sink.RecordCorrection(context.Background(), model.Correction{ID: "dup"}))
	require.NoError(t, sink.Close())

	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], common.ErrDuplicateEntry)
	inner.AssertNumberOfCalls(t, "RecordCorrection", 1)
}

func TestAsyncSink_DropOnFull(t *testing.T) {
	release := make(chan time.Time)
	inner := &mockSink{}
	inner.On("RecordCorrection", mock.Anything, mock.Anything).
		WaitUntil(release).
		Return(nil)

	sink := NewAsyncSink(inner, WithSinkBuffer(1), WithDropOnFull())
	for i := 0; i < 10; i++ {
		assert.NoError(t, sink.RecordCorrection(context.Background(), model.Correction{ID: "c"}))
	}
	close(release)
	require.NoError(t, sink.Close())

	// One write in flight plus one buffered; the rest were dropped.
	assert.LessOrEqual(t, len(inner.Calls), 2)
}

func TestAsyncSink_RejectsAfterClose(t *testing.T) {
	sink := NewAsyncSink(&recordingSink{})
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	err := sink.RecordCorrection(context.Background(), model.Correction{ID: "late"})
	assert.ErrorIs(t, err, common.ErrSinkClosed)
}

func TestAsyncSink_WithEngine(t *testing.T) {
	inner := &recordingSink{}
	sink := NewAsyncSink(inner)
	e := starbucksWalmartEngine(t, WithCorrectionSink(sink))

	got, err := e.SubmitCorrection(context.Background(), model.Correction{
		Description:         "Walmart Supercenter",
		PredictedCategoryID: "GROCERIES",
		CorrectedCategoryID: "SHOPPING",
	})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	recorded := inner.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, got, recorded[0])
}
