package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "FraudGuard/internal/domain/repository"
	appmw "FraudGuard/internal/middleware"
	pkgch "FraudGuard/pkg/clickhouse"
	"FraudGuard/pkg/config"
	xhttp "FraudGuard/pkg/http"
	pkgkafka "FraudGuard/pkg/kafka"
	applogger "FraudGuard/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	retrier     *appmw.PersistRetrier
	history     domrepo.HistoryStore
	publisher   domrepo.Publisher
	chClient    *pkgch.Client
}

// New creates a new App instance with all dependencies. consumer, kh,
// retrier, publisher and chClient may be nil when the corresponding
// subsystem is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	retrier *appmw.PersistRetrier,
	history domrepo.HistoryStore,
	publisher domrepo.Publisher,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		httpHandler: httpHandler,
		consumer:    consumer,
		kh:          kh,
		retrier:     retrier,
		history:     history,
		publisher:   publisher,
		chClient:    chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the persistence retry loop
	if a.retrier != nil {
		a.retrier.Start(ctx)
		a.l.Info("persist retrier started")
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Shutdown HTTP server first so no new assessments arrive
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Drain the retry buffer before closing stores
	if a.retrier != nil {
		a.retrier.Stop()
	}

	// Close infrastructure clients
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.l.Warn("history store close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
