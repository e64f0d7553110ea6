package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"FxDesk/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads registered topics in a consumer group and hands messages to
// a worker pool. Messages of one partition are handled one at a time. A
// message is retried with jittered backoff, then written to the DLQ topic if
// one is configured, and its offset is committed.
type Consumer struct {
	cfg       *ConsumerConfig
	log       *logger.Logger
	handlers  map[string]MessageHandler
	readers   map[string]messageReader
	newReader func(topic string) messageReader
	dlq       messageWriter
	hook      ConsumerHook

	msgChan  chan kafka.Message
	ctx      context.Context
	cancel   context.CancelFunc
	readWG   sync.WaitGroup
	workWG   sync.WaitGroup
	stopOnce sync.Once

	lockMu    sync.Mutex
	partLocks map[string]map[int]*sync.Mutex
}

func NewConsumer(log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "fxdesk",
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:       cfg,
		log:       log,
		handlers:  make(map[string]MessageHandler),
		readers:   make(map[string]messageReader),
		hook:      NoopHook{},
		msgChan:   make(chan kafka.Message, cfg.BufferSize),
		ctx:       ctx,
		cancel:    cancel,
		partLocks: make(map[string]map[int]*sync.Mutex),
	}
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
	}
	initConsumerMetrics()
	return c, nil
}

func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka handler already registered", logger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// WithConsumerHook sets the hook run around every handler attempt.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = c.newReader(topic)
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.workWG.Add(1)
		go c.worker()
	}
	for topic, r := range c.readers {
		c.readWG.Add(1)
		go c.read(topic, r)
	}
	c.log.Info("kafka consumer started",
		logger.String("group", c.cfg.GroupID),
		logger.Int("topics", len(c.readers)),
		logger.Int("workers", c.cfg.WorkerCount))
	return nil
}

// Stop stops reading, lets workers finish the buffered messages and closes
// the readers. It returns early with an error when ctx expires first.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		c.cancel()

		done := make(chan struct{})
		go func() {
			c.readWG.Wait()
			close(c.msgChan)
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if err := r.Close(); err != nil {
				c.log.Warn("close kafka reader", logger.String("topic", topic), logger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.log.Warn("close dlq writer", logger.Error(err))
			}
		}
		if stopErr == nil {
			c.log.Info("kafka consumer stopped")
		}
	})
	return stopErr
}

func (c *Consumer) read(topic string, r messageReader) {
	defer c.readWG.Done()
	for {
		msg, err := r.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka fetch failed", logger.String("topic", topic), logger.Error(err))
			select {
			case <-time.After(c.cfg.BackoffMin):
			case <-c.ctx.Done():
				return
			}
			continue
		}
		if msg.Topic == "" {
			msg.Topic = topic
		}

		select {
		case c.msgChan <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.workWG.Done()
	for msg := range c.msgChan {
		c.handle(msg)
	}
}

func (c *Consumer) handle(msg kafka.Message) {
	handler, ok := c.handlers[msg.Topic]
	if !ok {
		return
	}
	start := time.Now()

	pl := c.partitionLock(msg.Topic, msg.Partition)
	pl.Lock()
	defer pl.Unlock()

	err := c.handleWithRetry(handler, msg)
	result := "ok"
	if err != nil {
		result = "failed"
		c.hook.OnError(c.ctx, msg.Topic, msg, msg.Value, err)
		c.log.Error("kafka message failed",
			logger.String("topic", msg.Topic),
			logger.Int("partition", msg.Partition),
			logger.Int64("offset", msg.Offset),
			logger.Error(err))
		if !c.deadLetter(msg, err) {
			// Left uncommitted so the group redelivers it.
			consumerMessages.WithLabelValues(msg.Topic, result).Inc()
			return
		}
		result = "dead_lettered"
	}
	c.commit(msg)
	consumerMessages.WithLabelValues(msg.Topic, result).Inc()
	consumerHandleLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) handleWithRetry(handler MessageHandler, msg kafka.Message) (err error) {
	for attempt := 1; ; attempt++ {
		err = c.attempt(handler, msg)
		if err == nil || attempt > c.cfg.RetryMax || IsPermanent(err) || c.ctx.Err() != nil {
			return err
		}
		c.hook.OnError(c.ctx, msg.Topic, msg, msg.Value, err)
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.ctx.Done():
			return err
		}
	}
}

func (c *Consumer) attempt(handler MessageHandler, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	ctx, km, data, err := c.hook.BeforeHandle(c.ctx, msg.Topic, msg, msg.Value)
	if err != nil {
		return err
	}
	err = handler.Handle(ctx, data)
	c.hook.AfterHandle(ctx, msg.Topic, km, data, err)
	return err
}

func (c *Consumer) deadLetter(msg kafka.Message, cause error) bool {
	if c.dlq == nil || c.cfg.DLQTopic == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(msg.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.log.Error("write dlq", logger.String("topic", c.cfg.DLQTopic), logger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) commit(msg kafka.Message) {
	r := c.readers[msg.Topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("commit offset", logger.String("topic", msg.Topic), logger.Int64("offset", msg.Offset), logger.Error(err))
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	m, ok := c.partLocks[topic]
	if !ok {
		m = make(map[int]*sync.Mutex)
		c.partLocks[topic] = m
	}
	l, ok := m[partition]
	if !ok {
		l = &sync.Mutex{}
		m[partition] = l
	}
	return l
}

// backoffWithJitter doubles min per attempt up to max and subtracts up to
// half of it at random.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := max
	if attempt-1 < 31 {
		if d := min * time.Duration(1<<uint(attempt-1)); d > 0 && d < max {
			exp = d
		}
	}
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

var (
	consumerOnce          sync.Once
	consumerQueueDepth    *prometheus.GaugeVec
	consumerMessages      *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fxdesk_kafka_consumer_queue_depth",
			Help: "Messages waiting for a consumer worker",
		}, []string{"topic"})
		consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fxdesk_kafka_consumer_messages_total",
			Help: "Consumed messages by outcome",
		}, []string{"topic", "result"})
		consumerHandleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fxdesk_kafka_consumer_handle_seconds",
			Help:    "Handling time per message including retries",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"topic"})
	})
}
