package middleware

import (
	"context"
	"sync"
	"time"

	"FraudGuard/internal/domain/models"
	domrepo "FraudGuard/internal/domain/repository"
)

// Appender is the minimal history-store surface the retrier needs.
type Appender interface {
	Append(ctx context.Context, tx *models.Transaction) error
}

// PersistRetrier re-attempts failed history appends in the background so a
// store hiccup never blocks or fails a scoring response. Transactions are
// buffered in a bounded channel; when the buffer is full the oldest failure
// semantics are kept simple: the new one is dropped and counted. Dropped
// appends mean the user's next assessments under-see recent activity, which
// is the documented acceptable degradation, not a silent mask.
type PersistRetrier struct {
	store   Appender
	metrics domrepo.Metrics
	bufCh   chan *models.Transaction
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// RetrierOption configures PersistRetrier.
type RetrierOption func(*PersistRetrier)

// WithRetryBuffer sets the retry buffer capacity.
func WithRetryBuffer(n int) RetrierOption {
	return func(p *PersistRetrier) {
		if n > 0 {
			p.bufCh = make(chan *models.Transaction, n)
		}
	}
}

// NewPersistRetrier creates a retrier over the given store.
func NewPersistRetrier(store Appender, metrics domrepo.Metrics, opts ...RetrierOption) *PersistRetrier {
	p := &PersistRetrier{
		store:   store,
		metrics: metrics,
		bufCh:   make(chan *models.Transaction, 1000),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue hands a transaction whose synchronous append failed to the
// background loop. Non-blocking; drops and counts when the buffer is full.
func (p *PersistRetrier) Enqueue(tx *models.Transaction) {
	select {
	case p.bufCh <- tx:
	default:
		p.metrics.RecordError("persist_retry_buffer_full")
	}
}

// Start launches the background flush loop.
func (p *PersistRetrier) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case tx := <-p.bufCh:
				if tx == nil {
					continue
				}
				if err := p.store.Append(ctx, tx); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("persist_retry_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- tx:
					default:
						p.metrics.RecordError("persist_retry_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop halts the background loop. Buffered transactions are abandoned.
func (p *PersistRetrier) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Depth reports the current retry backlog.
func (p *PersistRetrier) Depth() int { return len(p.bufCh) }
