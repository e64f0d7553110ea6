package middleware

import (
	"context"
	"sync"
	"time"

	"FxDesk/internal/domain/models"
	domrepo "FxDesk/internal/domain/repository"
	"FxDesk/pkg/logger"
)

// Sink is one destination for decision records.
type Sink struct {
	Name  string
	Write func(ctx context.Context, rec models.DecisionRecord) error
}

// RecordBuffer sits between completed runs and the record sinks. Record never
// blocks: records are queued in a bounded buffer and a background worker
// writes them to every sink with retry and exponential backoff.
type RecordBuffer struct {
	sinks        []Sink
	metrics      domrepo.Metrics
	log          *logger.Logger
	bufCh        chan models.DecisionRecord
	stopCh       chan struct{}
	done         chan struct{}
	maxRetries   int
	backoff      time.Duration
	maxBackoff   time.Duration
	writeTimeout time.Duration

	mu      sync.Mutex
	started bool
}

type BufferOption func(*RecordBuffer)

func WithBufferSize(n int) BufferOption {
	return func(b *RecordBuffer) {
		if n > 0 {
			b.bufCh = make(chan models.DecisionRecord, n)
		}
	}
}

// WithRetry sets the attempts after the first failure and the initial backoff.
func WithRetry(maxRetries int, backoff time.Duration) BufferOption {
	return func(b *RecordBuffer) {
		if maxRetries >= 0 {
			b.maxRetries = maxRetries
		}
		if backoff > 0 {
			b.backoff = backoff
		}
	}
}

func WithWriteTimeout(d time.Duration) BufferOption {
	return func(b *RecordBuffer) {
		if d > 0 {
			b.writeTimeout = d
		}
	}
}

func NewRecordBuffer(sinks []Sink, metrics domrepo.Metrics, log *logger.Logger, opts ...BufferOption) *RecordBuffer {
	b := &RecordBuffer{
		sinks:        sinks,
		metrics:      metrics,
		log:          log,
		bufCh:        make(chan models.DecisionRecord, 256),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
		maxRetries:   3,
		backoff:      100 * time.Millisecond,
		maxBackoff:   2 * time.Second,
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Record queues rec, dropping it when the buffer is full.
func (b *RecordBuffer) Record(rec models.DecisionRecord) {
	if len(b.sinks) == 0 {
		return
	}
	select {
	case b.bufCh <- rec:
	default:
		b.metrics.RecordError("record_buffer_full")
		b.log.Warn("decision record dropped, buffer full", logger.String("run_id", rec.RunID))
	}
}

// Start launches the background writer.
func (b *RecordBuffer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		defer close(b.done)
		for {
			select {
			case <-b.stopCh:
				b.drain(ctx)
				return
			case rec := <-b.bufCh:
				b.write(ctx, rec)
			}
		}
	}()
}

// Stop flushes what is queued and stops the writer.
func (b *RecordBuffer) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()
	close(b.stopCh)
	<-b.done
}

func (b *RecordBuffer) drain(ctx context.Context) {
	for {
		select {
		case rec := <-b.bufCh:
			b.write(ctx, rec)
		default:
			return
		}
	}
}

func (b *RecordBuffer) write(ctx context.Context, rec models.DecisionRecord) {
	for _, s := range b.sinks {
		err := b.writeWithRetry(ctx, s, rec)
		b.metrics.RecordRecorded(s.Name, err == nil)
		if err != nil {
			b.log.Error("decision record not written",
				logger.String("sink", s.Name),
				logger.String("run_id", rec.RunID),
				logger.Error(err))
		}
	}
}

func (b *RecordBuffer) writeWithRetry(ctx context.Context, s Sink, rec models.DecisionRecord) error {
	backoff := b.backoff
	var err error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		wctx, cancel := context.WithTimeout(ctx, b.writeTimeout)
		err = s.Write(wctx, rec)
		cancel()
		if err == nil || attempt == b.maxRetries {
			return err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff < b.maxBackoff {
			backoff *= 2
		}
	}
	return err
}

var _ domrepo.DecisionRecorder = (*RecordBuffer)(nil)
