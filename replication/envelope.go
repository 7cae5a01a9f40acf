// Package replication publishes queue deliveries to NATS so downstream
// subscribers receive the same ordered stream the in-process consumer sees.
package replication

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/CBNU-BigDataLab/Current/errors"
)

// Message headers carried alongside each envelope so subscribers can filter
// or audit the stream without decoding the body.
const (
	HeaderID       = "Current-Id"
	HeaderSequence = "Current-Sequence"
	HeaderTotal    = "Current-Total"
)

// Envelope is the wire representation of one queue delivery. Sequence and
// Total come straight from the queue: Sequence identifies the delivery's
// admission slot and Total counts every push attempted so far, so
// Total-Sequence-1 rejected attempts preceded this message. Gap reports how
// many sequence numbers were skipped since the previous envelope on this
// publisher, letting subscribers detect shed load without tracking state.
type Envelope struct {
	ID          string          `json:"id"`
	Sequence    uint64          `json:"sequence"`
	Total       uint64          `json:"total"`
	Gap         uint64          `json:"gap,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
	Payload     json.RawMessage `json:"payload"`
}

// newEnvelope stamps a fresh ID and publish time onto a delivery.
func newEnvelope(sequence, total, gap uint64, payload []byte) Envelope {
	return Envelope{
		ID:          uuid.New().String(),
		Sequence:    sequence,
		Total:       total,
		Gap:         gap,
		PublishedAt: time.Now().UTC(),
		Payload:     payload,
	}
}

// encode renders the envelope as a NATS message with audit headers.
func (e Envelope) encode(subject string) (*nats.Msg, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "replication", "encode", "marshaling envelope %s", e.ID)
	}

	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderID, e.ID)
	msg.Header.Set(HeaderSequence, strconv.FormatUint(e.Sequence, 10))
	msg.Header.Set(HeaderTotal, strconv.FormatUint(e.Total, 10))
	msg.Data = body
	return msg, nil
}

// DecodeEnvelope parses an envelope from a received message body. Subscribers
// use it to recover the sequence metadata published by a Replicator.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, errors.Wrap(err, "replication", "DecodeEnvelope", "unmarshaling envelope")
	}
	return e, nil
}
