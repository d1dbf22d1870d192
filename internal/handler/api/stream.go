package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FraudGuard/internal/domain/models"
	xlogger "FraudGuard/pkg/logger"
)

// feedEvent is what subscribers of the live feed receive per assessment.
type feedEvent struct {
	TransactionID string                 `json:"transaction_id"`
	UserID        string                 `json:"user_id"`
	Assessment    *models.RiskAssessment `json:"assessment"`
	EmittedAt     time.Time              `json:"emitted_at"`
}

// AssessmentHub fans scored transactions out to websocket subscribers for
// live ops monitoring. Slow subscribers are dropped rather than allowed to
// back-pressure the scoring path.
type AssessmentHub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
}

type subscriber struct {
	ch chan feedEvent
}

// NewAssessmentHub creates the hub.
func NewAssessmentHub(logger *xlogger.Logger) *AssessmentHub {
	return &AssessmentHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// feed is read-only telemetry; origin checks belong to the
			// fronting proxy
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Broadcast pushes one assessment to every subscriber, dropping it for any
// subscriber whose buffer is full.
func (h *AssessmentHub) Broadcast(tx *models.Transaction, a *models.RiskAssessment) {
	ev := feedEvent{
		TransactionID: tx.TransactionID,
		UserID:        tx.UserID,
		Assessment:    a,
		EmittedAt:     time.Now().UTC(),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// Serve upgrades the connection and streams assessments until the client
// goes away.
func (h *AssessmentHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	sub := &subscriber{ch: make(chan feedEvent, 64)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	// reader goroutine only to detect client close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case ev := <-sub.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				if h.logger != nil {
					h.logger.Debug("feed subscriber write failed", xlogger.Error(err))
				}
				return nil
			}
		}
	}
}
