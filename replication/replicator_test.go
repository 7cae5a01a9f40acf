package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/CBNU-BigDataLab/Current/errors"
	"github.com/CBNU-BigDataLab/Current/metric"
	"github.com/CBNU-BigDataLab/Current/mq"
	"github.com/CBNU-BigDataLab/Current/pkg/retry"
)

type testEvent struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// fakePublisher records published messages and can fail a set number of
// times before accepting.
type fakePublisher struct {
	mu       sync.Mutex
	msgs     []*nats.Msg
	failures int
	failWith error
	calls    int
}

func (f *fakePublisher) PublishMsg(msg *nats.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		if f.failWith != nil {
			return f.failWith
		}
		return cerrors.ErrNotConnected
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakePublisher) published() []*nats.Msg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*nats.Msg(nil), f.msgs...)
}

func (f *fakePublisher) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeAckPublisher additionally records acknowledged publishes.
type fakeAckPublisher struct {
	fakePublisher
	ackMu    sync.Mutex
	ackMsgs  []*nats.Msg
	ackFails int
	ackCalls int
}

func (f *fakeAckPublisher) PublishMsgAck(_ context.Context, msg *nats.Msg) error {
	f.ackMu.Lock()
	defer f.ackMu.Unlock()
	f.ackCalls++
	if f.ackFails != 0 {
		if f.ackFails > 0 {
			f.ackFails--
		}
		return cerrors.ErrPublishFailed
	}
	f.ackMsgs = append(f.ackMsgs, msg)
	return nil
}

func (f *fakeAckPublisher) acked() []*nats.Msg {
	f.ackMu.Lock()
	defer f.ackMu.Unlock()
	return append([]*nats.Msg(nil), f.ackMsgs...)
}

// quickRetry keeps test retries fast.
var quickRetry = retry.Config{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     5 * time.Millisecond,
	Multiplier:   2.0,
}

func TestNewReplicator_Validation(t *testing.T) {
	t.Run("nil publisher", func(t *testing.T) {
		rep, err := NewReplicator[testEvent](nil, JSONEncoder[testEvent](), Config{})
		assert.Nil(t, rep)
		assert.ErrorIs(t, err, cerrors.ErrMissingConfig)
	})

	t.Run("nil encoder", func(t *testing.T) {
		rep, err := NewReplicator[testEvent](&fakePublisher{}, nil, Config{})
		assert.Nil(t, rep)
		assert.ErrorIs(t, err, cerrors.ErrMissingConfig)
	})

	t.Run("at-least-once needs an acknowledging publisher", func(t *testing.T) {
		rep, err := NewReplicator(&fakePublisher{}, JSONEncoder[testEvent](), Config{AtLeastOnce: true})
		assert.Nil(t, rep)
		assert.ErrorIs(t, err, cerrors.ErrInvalidConfig)
	})

	t.Run("defaults", func(t *testing.T) {
		rep, err := NewReplicator(&fakePublisher{}, JSONEncoder[testEvent](), Config{})
		require.NoError(t, err)
		defer rep.Close()

		assert.Equal(t, DefaultSubject, rep.subject)
		assert.Equal(t, "default", rep.pipeline)
		assert.Equal(t, 3, rep.retryCfg.MaxAttempts)
	})
}

func TestReplicator_PublishesEnvelopes(t *testing.T) {
	pub := &fakePublisher{}
	rep, err := NewReplicator(pub, JSONEncoder[testEvent](), Config{
		Subject: "test.events",
		Retry:   quickRetry,
	})
	require.NoError(t, err)
	defer rep.Close()

	for i := 0; i < 3; i++ {
		rep.Consume(testEvent{ID: i, Name: fmt.Sprintf("event-%d", i)}, uint64(i), uint64(i+1))
	}

	require.Equal(t, uint64(3), rep.Published())
	require.Equal(t, uint64(0), rep.Dropped())

	msgs := pub.published()
	require.Len(t, msgs, 3)

	for i, msg := range msgs {
		assert.Equal(t, "test.events", msg.Subject)
		assert.Equal(t, strconv.Itoa(i), msg.Header.Get(HeaderSequence))
		assert.Equal(t, strconv.Itoa(i+1), msg.Header.Get(HeaderTotal))
		assert.NotEmpty(t, msg.Header.Get(HeaderID))

		env, err := DecodeEnvelope(msg.Data)
		require.NoError(t, err)
		assert.Equal(t, msg.Header.Get(HeaderID), env.ID)
		assert.Equal(t, uint64(i), env.Sequence)
		assert.Equal(t, uint64(i+1), env.Total)
		assert.Equal(t, uint64(0), env.Gap)
		assert.False(t, env.PublishedAt.IsZero())

		var event testEvent
		require.NoError(t, json.Unmarshal(env.Payload, &event))
		assert.Equal(t, i, event.ID)
	}
}

func TestReplicator_EnvelopeCarriesGap(t *testing.T) {
	registry := metric.NewRegistry()
	pub := &fakePublisher{}
	rep, err := NewReplicator(pub, JSONEncoder[testEvent](), Config{
		Retry:   quickRetry,
		Metrics: registry,
	})
	require.NoError(t, err)
	defer rep.Close()

	rep.Consume(testEvent{ID: 0}, 0, 1)
	// Sequences 1..4 were shed by the queue.
	rep.Consume(testEvent{ID: 5}, 5, 6)

	msgs := pub.published()
	require.Len(t, msgs, 2)

	first, err := DecodeEnvelope(msgs[0].Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first.Gap)

	second, err := DecodeEnvelope(msgs[1].Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), second.Gap)

	assert.Equal(t, 4.0, gatherCounter(t, registry, "current_pipeline_sequence_gaps_total", "component", "replication"))
}

func TestReplicator_RetriesTransientFailures(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	rep, err := NewReplicator(pub, JSONEncoder[testEvent](), Config{Retry: quickRetry})
	require.NoError(t, err)
	defer rep.Close()

	rep.Consume(testEvent{ID: 1}, 0, 1)

	assert.Equal(t, uint64(1), rep.Published())
	assert.Equal(t, uint64(0), rep.Dropped())
	assert.Equal(t, 3, pub.attempts())
	require.Len(t, pub.published(), 1)
}

func TestReplicator_DropsAfterRetryExhaustion(t *testing.T) {
	registry := metric.NewRegistry()
	pub := &fakePublisher{failures: -1} // always fail
	rep, err := NewReplicator(pub, JSONEncoder[testEvent](), Config{
		Retry:   quickRetry,
		Metrics: registry,
	})
	require.NoError(t, err)
	defer rep.Close()

	rep.Consume(testEvent{ID: 1}, 0, 1)

	assert.Equal(t, uint64(0), rep.Published())
	assert.Equal(t, uint64(1), rep.Dropped())
	assert.Equal(t, 3, pub.attempts())
	assert.Empty(t, pub.published())
}

func TestReplicator_AtLeastOnceWaitsForAcks(t *testing.T) {
	pub := &fakeAckPublisher{}
	rep, err := NewReplicator[testEvent](pub, JSONEncoder[testEvent](), Config{
		Subject:     "test.acked",
		AtLeastOnce: true,
		Retry:       quickRetry,
	})
	require.NoError(t, err)
	defer rep.Close()

	for i := 0; i < 3; i++ {
		rep.Consume(testEvent{ID: i}, uint64(i), uint64(i+1))
	}

	assert.Equal(t, uint64(3), rep.Published())
	assert.Len(t, pub.acked(), 3)
	assert.Equal(t, 0, pub.attempts(), "at-least-once mode must not fall back to fire-and-forget")
}

func TestReplicator_AtLeastOnceRetriesFailedAcks(t *testing.T) {
	pub := &fakeAckPublisher{ackFails: 2}
	rep, err := NewReplicator[testEvent](pub, JSONEncoder[testEvent](), Config{
		AtLeastOnce: true,
		Retry:       quickRetry,
	})
	require.NoError(t, err)
	defer rep.Close()

	rep.Consume(testEvent{ID: 1}, 0, 1)

	assert.Equal(t, uint64(1), rep.Published())
	assert.Equal(t, uint64(0), rep.Dropped())
	assert.Equal(t, 3, pub.ackCalls)
	require.Len(t, pub.acked(), 1)
}

func TestReplicator_AbsorbsEncodeErrors(t *testing.T) {
	pub := &fakePublisher{}
	failing := func(testEvent) ([]byte, error) {
		return nil, fmt.Errorf("unencodable")
	}
	rep, err := NewReplicator(pub, failing, Config{Retry: quickRetry})
	require.NoError(t, err)
	defer rep.Close()

	rep.Consume(testEvent{ID: 1}, 0, 1)

	assert.Equal(t, uint64(1), rep.Dropped())
	assert.Equal(t, 0, pub.attempts())
}

func TestReplicator_CloseDropsLaterDeliveries(t *testing.T) {
	pub := &fakePublisher{}
	rep, err := NewReplicator(pub, JSONEncoder[testEvent](), Config{Retry: quickRetry})
	require.NoError(t, err)

	rep.Consume(testEvent{ID: 0}, 0, 1)
	require.NoError(t, rep.Close())
	require.NoError(t, rep.Close())

	rep.Consume(testEvent{ID: 1}, 1, 2)

	assert.Equal(t, uint64(1), rep.Published())
	assert.Equal(t, uint64(1), rep.Dropped())
	require.Len(t, pub.published(), 1)
}

func TestReplicator_EndToEndWithQueue(t *testing.T) {
	pub := &fakePublisher{}
	rep, err := NewReplicator(pub, JSONEncoder[testEvent](), Config{Retry: quickRetry})
	require.NoError(t, err)
	defer rep.Close()

	q, err := mq.New[testEvent](rep, mq.WithCapacity[testEvent](32))
	require.NoError(t, err)

	const count = 20
	for i := 0; i < count; i++ {
		require.True(t, q.Push(testEvent{ID: i, Name: fmt.Sprintf("event-%d", i)}))
	}
	require.NoError(t, q.Close())

	msgs := pub.published()
	require.Len(t, msgs, count)

	for i, msg := range msgs {
		env, err := DecodeEnvelope(msg.Data)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), env.Sequence, "envelopes must preserve delivery order")
		assert.Equal(t, uint64(0), env.Gap)
	}
	assert.Equal(t, uint64(count), rep.Published())
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	require.Error(t, err)
}

// gatherCounter reads a labeled counter back from the registry.
func gatherCounter(t *testing.T, registry *metric.Registry, family, labelName, labelValue string) float64 {
	t.Helper()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("counter %s{%s=%q} not found", family, labelName, labelValue)
	return 0
}
