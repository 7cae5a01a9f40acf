//go:build integration

package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CBNU-BigDataLab/Current/mq"
	"github.com/CBNU-BigDataLab/Current/natsclient"
)

type integrationEvent struct {
	ID   int    `json:"id"`
	Body string `json:"body"`
}

func TestIntegration_ReplicateQueueToNATS(t *testing.T) {
	tc := natsclient.NewTestClient(t)

	received := make(chan *nats.Msg, 256)
	sub, err := tc.NativeConnection().ChanSubscribe("it.replication", received)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	rep, err := NewReplicator(tc.Client, JSONEncoder[integrationEvent](), Config{
		Subject: "it.replication",
	})
	require.NoError(t, err)
	defer rep.Close()

	q, err := mq.New[integrationEvent](rep, mq.WithCapacity[integrationEvent](64))
	require.NoError(t, err)

	const count = 50
	for i := 0; i < count; i++ {
		require.True(t, q.Push(integrationEvent{ID: i, Body: fmt.Sprintf("body-%d", i)}))
	}
	require.NoError(t, q.Close())
	require.NoError(t, tc.Client.Flush())

	deadline := time.After(10 * time.Second)
	for i := 0; i < count; i++ {
		select {
		case msg := <-received:
			env, err := DecodeEnvelope(msg.Data)
			require.NoError(t, err)
			assert.Equal(t, uint64(i), env.Sequence)
			assert.Equal(t, msg.Header.Get(HeaderID), env.ID)

			var event integrationEvent
			require.NoError(t, json.Unmarshal(env.Payload, &event))
			assert.Equal(t, i, event.ID)
		case <-deadline:
			t.Fatalf("received %d of %d replicated messages", i, count)
		}
	}
	assert.Equal(t, uint64(count), rep.Published())
}

func TestIntegration_AtLeastOnceLandsInStream(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	js, err := tc.Client.JetStream()
	require.NoError(t, err)

	stream, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     "IT_REPLICATION",
		Subjects: []string{"it.acked"},
	})
	require.NoError(t, err)

	rep, err := NewReplicator(tc.Client, JSONEncoder[integrationEvent](), Config{
		Subject:     "it.acked",
		AtLeastOnce: true,
	})
	require.NoError(t, err)
	defer rep.Close()

	q, err := mq.New[integrationEvent](rep, mq.WithCapacity[integrationEvent](64))
	require.NoError(t, err)

	const count = 20
	for i := 0; i < count; i++ {
		require.True(t, q.Push(integrationEvent{ID: i, Body: fmt.Sprintf("body-%d", i)}))
	}
	require.NoError(t, q.Close())

	// Every envelope was acked by the broker, so the stream must hold all of
	// them already.
	assert.Equal(t, uint64(count), rep.Published())

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:   "it-replication",
		AckPolicy: jetstream.AckExplicitPolicy,
	})
	require.NoError(t, err)

	batch, err := cons.Fetch(count, jetstream.FetchMaxWait(10*time.Second))
	require.NoError(t, err)

	i := 0
	for msg := range batch.Messages() {
		env, err := DecodeEnvelope(msg.Data())
		require.NoError(t, err)
		assert.Equal(t, uint64(i), env.Sequence, "stream preserves delivery order")

		var event integrationEvent
		require.NoError(t, json.Unmarshal(env.Payload, &event))
		assert.Equal(t, i, event.ID)

		require.NoError(t, msg.Ack())
		i++
	}
	require.NoError(t, batch.Error())
	assert.Equal(t, count, i, "all acked envelopes are in the stream")
}

func TestIntegration_SubscriberSeesGaps(t *testing.T) {
	tc := natsclient.NewTestClient(t)

	received := make(chan *nats.Msg, 64)
	sub, err := tc.NativeConnection().ChanSubscribe("it.gaps", received)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	rep, err := NewReplicator(tc.Client, JSONEncoder[integrationEvent](), Config{
		Subject: "it.gaps",
	})
	require.NoError(t, err)
	defer rep.Close()

	// Feed the replicator directly with a shed-load pattern.
	rep.Consume(integrationEvent{ID: 0}, 0, 1)
	rep.Consume(integrationEvent{ID: 7}, 7, 8)
	require.NoError(t, tc.Client.Flush())

	var gaps []uint64
	deadline := time.After(10 * time.Second)
	for len(gaps) < 2 {
		select {
		case msg := <-received:
			env, err := DecodeEnvelope(msg.Data)
			require.NoError(t, err)
			gaps = append(gaps, env.Gap)
		case <-deadline:
			t.Fatalf("received %d of 2 envelopes", len(gaps))
		}
	}
	assert.Equal(t, []uint64{0, 6}, gaps)
}
