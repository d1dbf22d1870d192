package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FraudGuard/internal/domain/models"
)

type recordingAppender struct {
	mu       sync.Mutex
	failures int
	stored   []*models.Transaction
}

func (a *recordingAppender) Append(_ context.Context, tx *models.Transaction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failures > 0 {
		a.failures--
		return errors.New("store down")
	}
	a.stored = append(a.stored, tx)
	return nil
}

func (a *recordingAppender) storedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.stored)
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *countingMetrics) RecordAssessment(models.RiskLevel) {}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[kind]++
}
func (m *countingMetrics) RecordAnomalyScore(float64)    {}
func (m *countingMetrics) RecordLatency(string, float64) {}

func (m *countingMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[kind]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRetrierFlushesBufferedTransactions(t *testing.T) {
	store := &recordingAppender{}
	p := NewPersistRetrier(store, &countingMetrics{})
	p.Start(context.Background())
	defer p.Stop()

	p.Enqueue(&models.Transaction{TransactionID: "a", UserID: "u1"})
	p.Enqueue(&models.Transaction{TransactionID: "b", UserID: "u1"})

	waitFor(t, func() bool { return store.storedCount() == 2 })
	assert.Equal(t, 0, p.Depth())
}

func TestRetrierRetriesAfterTransientFailure(t *testing.T) {
	store := &recordingAppender{failures: 2}
	m := &countingMetrics{}
	p := NewPersistRetrier(store, m)
	p.Start(context.Background())
	defer p.Stop()

	p.Enqueue(&models.Transaction{TransactionID: "a", UserID: "u1"})

	waitFor(t, func() bool { return store.storedCount() == 1 })
	require.GreaterOrEqual(t, m.count("persist_retry_flush"), 1)
}

func TestRetrierDropsWhenBufferFull(t *testing.T) {
	store := &recordingAppender{}
	m := &countingMetrics{}
	p := NewPersistRetrier(store, m, WithRetryBuffer(1))
	// not started: nothing drains the buffer

	p.Enqueue(&models.Transaction{TransactionID: "a"})
	p.Enqueue(&models.Transaction{TransactionID: "b"})

	assert.Equal(t, 1, p.Depth())
	assert.Equal(t, 1, m.count("persist_retry_buffer_full"))
}

func TestRetrierStopIsIdempotent(t *testing.T) {
	p := NewPersistRetrier(&recordingAppender{}, &countingMetrics{})
	p.Start(context.Background())
	p.Start(context.Background()) // second start is a no-op
	p.Stop()
	p.Stop()
}
