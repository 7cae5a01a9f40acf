package journal

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CBNU-BigDataLab/Current/errors"
	"github.com/CBNU-BigDataLab/Current/metric"
)

type testEvent struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestNewPersister_Validation(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	_, err := NewPersister[testEvent](nil, JSONEncoder[testEvent](), PersisterConfig{})
	if !errors.Is(err, errors.ErrMissingConfig) {
		t.Errorf("expected missing config for nil journal, got %v", err)
	}

	_, err = NewPersister[testEvent](j, nil, PersisterConfig{})
	if !errors.Is(err, errors.ErrMissingConfig) {
		t.Errorf("expected missing config for nil encoder, got %v", err)
	}
}

func TestPersister_JournalsDeliveries(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	p, err := NewPersister[testEvent](j, JSONEncoder[testEvent](), PersisterConfig{
		BatchSize:     4,
		FlushInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		p.Consume(testEvent{ID: i, Name: fmt.Sprintf("event %d", i)}, uint64(i), uint64(i+1))
	}
	require.NoError(t, p.Close())

	var got []Entry
	require.NoError(t, j.Scan(0, func(e Entry) error {
		got = append(got, e)
		return nil
	}))

	if len(got) != 10 {
		t.Fatalf("expected 10 journaled entries, got %d", len(got))
	}
	for i, e := range got {
		if e.Sequence != uint64(i) {
			t.Errorf("entry %d: expected sequence %d, got %d", i, i, e.Sequence)
		}
		if e.Total != uint64(i+1) {
			t.Errorf("entry %d: expected total %d, got %d", i, i+1, e.Total)
		}

		var ev testEvent
		require.NoError(t, json.Unmarshal(e.Payload, &ev))
		if ev.ID != i {
			t.Errorf("entry %d: expected event id %d, got %d", i, i, ev.ID)
		}
	}

	if p.Pending() != 0 {
		t.Errorf("expected empty pending buffer after close, got %d", p.Pending())
	}
}

func TestPersister_CloseFlushesPending(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	// Long interval and large batch so nothing flushes until Close.
	p, err := NewPersister[testEvent](j, JSONEncoder[testEvent](), PersisterConfig{
		BatchSize:     1000,
		FlushInterval: time.Hour,
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		p.Consume(testEvent{ID: i}, uint64(i), uint64(i+1))
	}
	require.NoError(t, p.Close())

	count := 0
	require.NoError(t, j.Scan(0, func(Entry) error {
		count++
		return nil
	}))
	if count != 5 {
		t.Errorf("expected close to flush all 5 entries, got %d", count)
	}
}

func TestPersister_RecordsSequenceGaps(t *testing.T) {
	registry := metric.NewRegistry()

	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	p, err := NewPersister[testEvent](j, JSONEncoder[testEvent](), PersisterConfig{
		Metrics: registry,
	})
	require.NoError(t, err)

	// Deliveries with sequences 0 then 5: four messages were shed between.
	p.Consume(testEvent{ID: 0}, 0, 1)
	p.Consume(testEvent{ID: 5}, 5, 10)
	require.NoError(t, p.Close())

	if got := gatherCounter(t, registry, "current_pipeline_sequence_gaps_total", "component", "journal"); got != 4 {
		t.Errorf("expected gap counter 4, got %f", got)
	}
}

func TestPersister_AbsorbsEncodeErrors(t *testing.T) {
	registry := metric.NewRegistry()

	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	failing := func(e testEvent) ([]byte, error) {
		if e.ID == 1 {
			return nil, errors.New("boom")
		}
		return json.Marshal(e)
	}

	p, err := NewPersister[testEvent](j, failing, PersisterConfig{Metrics: registry})
	require.NoError(t, err)

	p.Consume(testEvent{ID: 0}, 0, 1)
	p.Consume(testEvent{ID: 1}, 1, 2) // encode fails, entry dropped
	p.Consume(testEvent{ID: 2}, 2, 3)
	require.NoError(t, p.Close())

	var seqs []uint64
	require.NoError(t, j.Scan(0, func(e Entry) error {
		seqs = append(seqs, e.Sequence)
		return nil
	}))
	if len(seqs) != 2 || seqs[0] != 0 || seqs[1] != 2 {
		t.Errorf("expected journaled sequences [0 2], got %v", seqs)
	}
}

// gatherCounter reads a labelled counter value from the registry.
func gatherCounter(t *testing.T, registry *metric.Registry, family, labelName, labelValue string) float64 {
	t.Helper()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != family {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not gathered", family, labelName, labelValue)
	return 0
}
