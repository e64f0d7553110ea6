package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated error lines, usually to Kafka.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	FlushInterval  time.Duration
	CountThreshold int
	Topic          string
	Publisher      Publisher
}

// AggregatedLogEntry counts repeats of one distinct error line.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector deduplicates error lines and flushes them on an interval or
// once CountThreshold distinct lines are pending.
type LogCollector struct {
	cfg     *CollectionConfig
	mu      sync.Mutex
	pending map[string]*AggregatedLogEntry
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewLogCollector(cfg *CollectionConfig) *LogCollector {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}

	c := &LogCollector{
		cfg:     cfg,
		pending: make(map[string]*AggregatedLogEntry),
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.pending[key]; ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		c.pending[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(c.pending) >= c.cfg.CountThreshold {
		c.flushLocked()
	}
}

func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	raw, _ := json.Marshal(struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (c *LogCollector) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
		case <-c.stop:
			c.mu.Lock()
			batch := c.takeLocked()
			c.mu.Unlock()
			c.publish(batch)
			return
		}
	}
}

func (c *LogCollector) takeLocked() []AggregatedLogEntry {
	if len(c.pending) == 0 {
		return nil
	}
	batch := make([]AggregatedLogEntry, 0, len(c.pending))
	for _, entry := range c.pending {
		batch = append(batch, *entry)
	}
	c.pending = make(map[string]*AggregatedLogEntry)
	return batch
}

func (c *LogCollector) flushLocked() {
	batch := c.takeLocked()
	if batch == nil {
		return
	}
	go c.publish(batch)
}

func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Cannot log through the owning logger here without recursing into the collector.
	if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
		fmt.Fprintf(os.Stderr, "log collector: publish %d entries: %v\n", len(batch), err)
	}
}

// Close stops the flush loop and publishes what is pending synchronously.
func (c *LogCollector) Close() {
	c.once.Do(func() {
		close(c.stop)
		c.wg.Wait()
	})
}
