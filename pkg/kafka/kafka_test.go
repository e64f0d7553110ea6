package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"FxDesk/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) Messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) Committed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type countingHandler struct {
	topic string
	calls int32
	err   error
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(context.Context, []byte) error {
	atomic.AddInt32(&h.calls, 1)
	return h.err
}

func (h *countingHandler) Calls() int { return int(atomic.LoadInt32(&h.calls)) }

func TestProducerEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "snappy")

	require.NoError(t, p.Publish(context.Background(), "decisions", []byte("EUR/USD"), map[string]string{"action": "BUY"}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "raw line"))

	msgs := w.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "decisions", msgs[0].Topic)
	assert.Equal(t, []byte("EUR/USD"), msgs[0].Key)
	var got map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
	assert.Equal(t, "BUY", got["action"])
	assert.Equal(t, []byte("raw line"), msgs[1].Value)
	assert.Nil(t, msgs[1].Key)
}

func TestProducerWrapsWriteErrors(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("broker down")}, "snappy")
	err := p.Publish(context.Background(), "decisions", nil, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decisions")
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)
}

func TestHookChainOrderAndPanic(t *testing.T) {
	var order []string
	record := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, "after:"+name)
			},
		}
	}

	chain := NewHookChain(record("a"), nil, record("b"))
	_, _, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte(">"))
	require.NoError(t, err)
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, data, nil)
	assert.Equal(t, ">ab", string(data))
	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, order)

	var errs int
	panicky := NewHookChain(HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		},
		Err: func(context.Context, string, kafka.Message, []byte, error) { errs++ },
	})
	_, _, _, err = panicky.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "ERR_PANIC", hookErr.Code)
	assert.Equal(t, 1, errs)
}

func TestConsumerRetriesThenDeadLetters(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, err := NewConsumer(logger.Nop(),
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
		WithConsumerDLQ("requests.dlq"))
	require.NoError(t, err)

	reader := &fakeReader{pending: []kafka.Message{{Topic: "requests", Value: []byte(`{"query":"x"}`), Offset: 7}}}
	dlq := &fakeWriter{}
	c.newReader = func(string) messageReader { return reader }
	c.dlq = dlq

	h := &countingHandler{topic: "requests", err: errors.New("always fails")}
	c.RegisterHandler(h)
	require.NoError(t, c.Start())

	require.Eventually(t, func() bool { return reader.Committed() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.Equal(t, 3, h.Calls())
	msgs := dlq.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "requests.dlq", msgs[0].Topic)
	assert.Equal(t, "requests", Header(msgs[0], "source_topic"))
	assert.Equal(t, "always fails", Header(msgs[0], "error"))
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, err := NewConsumer(logger.Nop(), WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerWorkers(2))
	require.NoError(t, err)
	reader := &fakeReader{pending: []kafka.Message{
		{Topic: "requests", Partition: 0, Offset: 1},
		{Topic: "requests", Partition: 1, Offset: 1},
		{Topic: "requests", Partition: 0, Offset: 2},
	}}
	c.newReader = func(string) messageReader { return reader }
	h := &countingHandler{topic: "requests"}
	c.RegisterHandler(h)
	c.WithConsumerHook(LoggingHook(logger.Nop()))
	require.NoError(t, c.Start())

	require.Eventually(t, func() bool { return reader.Committed() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, 3, h.Calls())
}

func TestConsumerStartWithoutHandlers(t *testing.T) {
	c, err := NewConsumer(logger.Nop(), WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	require.Error(t, c.Start())
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 70; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, time.Second, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
}

func TestConsumerSkipsRetriesForPermanentErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, err := NewConsumer(logger.Nop(),
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(5, time.Millisecond, time.Millisecond),
		WithConsumerDLQ("requests.dlq"))
	require.NoError(t, err)
	reader := &fakeReader{pending: []kafka.Message{{Topic: "requests", Value: []byte("not json")}}}
	dlq := &fakeWriter{}
	c.newReader = func(string) messageReader { return reader }
	c.dlq = dlq

	h := &countingHandler{topic: "requests", err: Permanent(errors.New("bad payload"))}
	c.RegisterHandler(h)
	require.NoError(t, c.Start())

	require.Eventually(t, func() bool { return reader.Committed() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, 1, h.Calls())
	assert.Len(t, dlq.Messages(), 1)
	assert.True(t, IsPermanent(h.err))
	assert.False(t, IsPermanent(errors.New("x")))
	assert.Nil(t, Permanent(nil))
}
