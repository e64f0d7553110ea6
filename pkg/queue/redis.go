package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"FxDesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNotRunning = errors.New("queue not running")
	ErrQueueFull  = errors.New("queue full")
)

// RedisQueue is a list-backed job queue with delayed retries in a sorted set
// and a dead-letter list.
type RedisQueue struct {
	logger    *logger.Logger
	config    Config
	client    *redis.Client
	jobs      map[string]Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
	keyPrefix string
	pollEvery time.Duration
}

type RedisQueueOption func(*RedisQueue)

func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

// WithRetryPoll sets how often due retries are moved back to the queue.
func WithRetryPoll(d time.Duration) RedisQueueOption {
	return func(r *RedisQueue) {
		if d > 0 {
			r.pollEvery = d
		}
	}
}

func NewRedisQueue(lgr *logger.Logger, config Config, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if config.Workers < 0 {
		config.Workers = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    lgr,
		config:    config,
		client:    client,
		jobs:      make(map[string]Job),
		ctx:       ctx,
		cancel:    cancel,
		keyPrefix: "fxdesk:queue",
		pollEvery: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry mover.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	r.mu.Lock()
	r.isRunning = true
	r.mu.Unlock()

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	if r.config.Workers > 0 {
		r.wg.Add(1)
		go r.retryProcessor()
	}
	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs up to ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()
	r.cancel()

	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		r.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		r.logger.Info("redis queue stopped")
		return nil
	}
}

// Enqueue pushes a message and returns its id. When QueueSize is set the
// push is refused once that many messages are waiting.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	r.mu.RLock()
	running := r.isRunning
	_, known := r.jobs[msgType]
	r.mu.RUnlock()

	if !running {
		return "", ErrNotRunning
	}
	if r.config.Workers > 0 && !known {
		return "", fmt.Errorf("no job registered for type: %s", msgType)
	}
	if r.config.QueueSize > 0 {
		n, err := r.client.LLen(ctx, r.queueKey()).Result()
		if err != nil {
			return "", fmt.Errorf("llen: %w", err)
		}
		if n >= int64(r.config.QueueSize) {
			return "", ErrQueueFull
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return "", fmt.Errorf("lpush: %w", err)
	}
	return msg.ID, nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.logger.Debug("queue worker started", logger.Int("worker_id", id))

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
			r.processNext()
		}
	}
}

func (r *RedisQueue) processNext() {
	result, err := r.client.BRPop(r.ctx, time.Second, r.queueKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		r.logger.Error("brpop error", logger.Error(err))
		select {
		case <-time.After(time.Second):
		case <-r.ctx.Done():
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		r.logger.Error("unmarshal message", logger.Error(err))
		return
	}
	r.process(msg)
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, exists := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !exists {
		r.logger.Error("no job found", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.deadLetter(msg)
		return
	}

	start := time.Now()
	err := job.Handle(r.ctx, msg.Payload)
	if err == nil {
		r.logger.Debug("job done",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("elapsed", time.Since(start)))
		return
	}
	if errors.Is(err, context.Canceled) {
		r.logger.Warn("job cancelled", logger.String("id", msg.ID), logger.String("job", job.Name()))
		return
	}

	r.logger.Error("job failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))
	if msg.Attempts < r.config.RetryLimit {
		msg.Attempts++
		r.scheduleRetry(msg, time.Now().Add(r.config.RetryDelay))
		return
	}
	r.deadLetter(msg)
}

func (r *RedisQueue) scheduleRetry(msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal retry", logger.Error(err))
		return
	}
	if err := r.client.ZAdd(context.Background(), r.retryKey(), redis.Z{
		Score:  float64(at.Unix()),
		Member: data,
	}).Err(); err != nil {
		r.logger.Error("zadd retry", logger.Error(err))
	}
}

func (r *RedisQueue) deadLetter(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal dlq", logger.Error(err))
		return
	}
	if err := r.client.LPush(context.Background(), r.deadLetterKey(), data).Err(); err != nil {
		r.logger.Error("lpush dlq", logger.Error(err))
	}
}

func (r *RedisQueue) retryProcessor() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.moveDueRetries()
		}
	}
}

func (r *RedisQueue) moveDueRetries() {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{Min: "0", Max: now}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("fetch retry messages", logger.Error(err))
		}
		return
	}

	for _, member := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey(), member)
		pipe.LPush(r.ctx, r.queueKey(), member)
		if _, err := pipe.Exec(r.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Error("move retry to queue", logger.Error(err))
		}
	}
}

func (r *RedisQueue) queueKey() string      { return r.keyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.keyPrefix + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.keyPrefix + ":dlq" }

var _ Publisher = (*RedisQueue)(nil)
