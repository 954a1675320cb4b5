package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"certledger/internal/certificate/models"
	indexstore "certledger/internal/index/store"
	"certledger/pkg/platform/circuit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	entries []models.VerificationLogEntry
	ctxErrs []error
}

func (s *blockingSink) AppendVerificationLog(ctx context.Context, e models.VerificationLogEntry) error {
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return nil
}

func entry(outcome models.Outcome) models.VerificationLogEntry {
	return models.VerificationLogEntry{Source: models.SourceResolution, Outcome: outcome}
}

func TestRecorder_RequiresSink(t *testing.T) {
	_, err := NewRecorder(nil)
	assert.EqualError(t, err, "verification log sink is required")
}

func TestRecorder_DrainsOnClose(t *testing.T) {
	sink := indexstore.NewInMemory()
	rec, err := NewRecorder(sink, WithQueueSize(100))
	require.NoError(t, err)

	for range 10 {
		rec.Record(entry(models.OutcomeVerified))
	}
	rec.Close()

	assert.Len(t, sink.Logs(), 10, "all queued entries should be persisted on close")
}

func TestRecorder_SetsTimestamp(t *testing.T) {
	sink := indexstore.NewInMemory()
	rec, err := NewRecorder(sink)
	require.NoError(t, err)

	before := time.Now()
	rec.Record(entry(models.OutcomeNotFound))
	rec.Close()

	logs := sink.Logs()
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Timestamp.Before(before))
}

func TestRecorder_QueueFullReportsDrop(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	var (
		mu      sync.Mutex
		dropped []error
	)
	rec, err := NewRecorder(sink, WithQueueSize(1), WithErrorHandler(func(_ models.VerificationLogEntry, err error) {
		mu.Lock()
		defer mu.Unlock()
		dropped = append(dropped, err)
	}))
	require.NoError(t, err)

	// the worker holds at most one entry and the queue one more
	for range 5 {
		rec.Record(entry(models.OutcomeVerified))
	}
	close(sink.release)
	rec.Close()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, dropped)
	for _, err := range dropped {
		assert.ErrorIs(t, err, ErrQueueFull)
	}
	assert.Equal(t, 5, len(sink.entries)+len(dropped))
}

func TestRecorder_RecordAfterCloseIsReported(t *testing.T) {
	var got error
	rec, err := NewRecorder(indexstore.NewInMemory(), WithErrorHandler(func(_ models.VerificationLogEntry, err error) {
		got = err
	}))
	require.NoError(t, err)
	rec.Close()
	rec.Close()

	rec.Record(entry(models.OutcomeVerified))
	assert.ErrorIs(t, got, ErrClosed)
}

func TestRecorder_WriteIgnoresCallerCancellation(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	close(sink.release)
	rec, err := NewRecorder(sink)
	require.NoError(t, err)
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, rec.Write(ctx, entry(models.OutcomeMismatch)))
	require.Len(t, sink.ctxErrs, 1)
	assert.NoError(t, sink.ctxErrs[0])
}

func TestRecorder_BreakerOpensOnRepeatedFailures(t *testing.T) {
	sink := indexstore.NewInMemory()
	sink.SetUnavailable(errors.New("db down"))
	var failures int
	rec, err := NewRecorder(sink,
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))),
		WithErrorHandler(func(models.VerificationLogEntry, error) { failures++ }),
	)
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	assert.Error(t, rec.Write(ctx, entry(models.OutcomeVerified)))
	assert.Error(t, rec.Write(ctx, entry(models.OutcomeVerified)))
	assert.ErrorIs(t, rec.Write(ctx, entry(models.OutcomeVerified)), ErrCircuitOpen)
	assert.Equal(t, 3, failures)
}
