package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Job handles one message type.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Publisher enqueues messages and returns their id.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

type Config struct {
	Workers    int
	QueueSize  int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals a job payload into T.
func Decode[T any](payload json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}
