package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FxDesk/internal/middleware"
	"FxDesk/pkg/config"
	xhttp "FxDesk/pkg/http"
	pkgkafka "FxDesk/pkg/kafka"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/queue"
	"FxDesk/pkg/tracing"
)

// Closer releases one infrastructure client at shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *xhttp.Server
	recorder   *middleware.RecordBuffer
	queue      *queue.RedisQueue
	consumer   *pkgkafka.Consumer
	tracing    *tracing.Provider
	closers    []Closer
}

// New creates an App. queue, consumer and tracing may be nil.
func New(
	cfg *config.Config,
	log *logger.Logger,
	httpServer *xhttp.Server,
	recorder *middleware.RecordBuffer,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	tp *tracing.Provider,
	closers ...Closer,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		recorder:   recorder,
		queue:      q,
		consumer:   consumer,
		tracing:    tp,
		closers:    closers,
	}
}

// Run starts the application and blocks until interrupted or the HTTP server fails.
func (a *App) Run() error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background writers outlive the signal so queued records still flush.
	bg, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	if a.recorder != nil {
		a.recorder.Start(bg)
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.log.Error("job queue start failed", logger.Error(err))
			a.shutdown()
			return err
		}
		a.log.Info("job queue started",
			logger.String("queue", a.cfg.Queue.Name),
			logger.Int("workers", a.cfg.Queue.Workers))
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start failed", logger.Error(err))
			a.shutdown()
			return err
		}
		a.log.Info("kafka consumer started", logger.String("topic", a.cfg.Kafka.RequestsTopic))
	}

	errCh := a.httpServer.Start()
	a.log.Info("http server started",
		logger.String("addr", a.httpServer.Addr()),
		logger.String("backend", a.cfg.Backend.Type))

	var runErr error
	select {
	case <-sigCtx.Done():
		a.log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			a.log.Error("http server error", logger.Error(err))
			runErr = err
		}
	}

	a.shutdown()
	return runErr
}

// shutdown stops the app in reverse start order: HTTP, intake (consumer and
// queue), recorder, tracing and finally the infrastructure clients.
func (a *App) shutdown() {
	a.log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error("http shutdown error", logger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", logger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", logger.Error(err))
		}
	}

	if a.recorder != nil {
		a.recorder.Stop()
	}

	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.log.Warn("tracing shutdown error", logger.Error(err))
		}
	}

	// Flush collected logs while the producer is still open.
	a.log.Close()

	for _, c := range a.closers {
		if c.Close == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", logger.String("client", c.Name), logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 15 * time.Second
}
