package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CBNU-BigDataLab/Current/errors"
)

func openTestJournal(t *testing.T, dir string) *Journal {
	t.Helper()
	j, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	return j
}

func TestOpen_RequiresDir(t *testing.T) {
	_, err := Open(Options{})
	if err == nil {
		t.Fatal("expected error for missing dir")
	}
	if !errors.Is(err, errors.ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig, got %v", err)
	}
}

func TestJournal_AppendAndRead(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	want := Entry{
		Sequence:  7,
		Total:     12,
		Timestamp: time.Now(),
		Payload:   []byte("hello"),
	}
	require.NoError(t, j.Append(want))

	got, err := j.Read(7)
	require.NoError(t, err)

	if got.Sequence != 7 {
		t.Errorf("expected sequence 7, got %d", got.Sequence)
	}
	if got.Total != 12 {
		t.Errorf("expected total 12, got %d", got.Total)
	}
	if string(got.Payload) != "hello" {
		t.Errorf("expected payload %q, got %q", "hello", got.Payload)
	}

	last, ok := j.LastSequence()
	if !ok || last != 7 {
		t.Errorf("expected last sequence 7, got %d (present=%v)", last, ok)
	}
}

func TestJournal_ReadMissingSequence(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	_, err := j.Read(99)
	if !errors.Is(err, errors.ErrSequenceNotFound) {
		t.Fatalf("expected sequence not found, got %v", err)
	}
}

func TestJournal_ScanInOrder(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	// Sequences with a gap, appended out of batch order.
	entries := []Entry{
		{Sequence: 0, Total: 1, Timestamp: time.Now(), Payload: []byte("m0")},
		{Sequence: 1, Total: 2, Timestamp: time.Now(), Payload: []byte("m1")},
		{Sequence: 5, Total: 8, Timestamp: time.Now(), Payload: []byte("m5")},
		{Sequence: 6, Total: 9, Timestamp: time.Now(), Payload: []byte("m6")},
	}
	require.NoError(t, j.AppendBatch(entries))

	var seqs []uint64
	err := j.Scan(0, func(e Entry) error {
		seqs = append(seqs, e.Sequence)
		return nil
	})
	require.NoError(t, err)

	want := []uint64{0, 1, 5, 6}
	if len(seqs) != len(want) {
		t.Fatalf("expected %d entries, got %d (%v)", len(want), len(seqs), seqs)
	}
	for i, s := range want {
		if seqs[i] != s {
			t.Errorf("position %d: expected sequence %d, got %d", i, s, seqs[i])
		}
	}

	// Partial scan starts mid-log.
	seqs = seqs[:0]
	err = j.Scan(2, func(e Entry) error {
		seqs = append(seqs, e.Sequence)
		return nil
	})
	require.NoError(t, err)
	if len(seqs) != 2 || seqs[0] != 5 || seqs[1] != 6 {
		t.Errorf("expected scan from 2 to yield [5 6], got %v", seqs)
	}
}

func TestJournal_ScanStopsOnCallbackError(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append(Entry{
			Sequence:  uint64(i),
			Total:     uint64(i + 1),
			Timestamp: time.Now(),
			Payload:   []byte(fmt.Sprintf("m%d", i)),
		}))
	}

	stop := errors.New("stop here")
	visited := 0
	err := j.Scan(0, func(e Entry) error {
		visited++
		if e.Sequence == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if visited != 3 {
		t.Errorf("expected 3 visits before stopping, got %d", visited)
	}
}

func TestJournal_RecoversLastSequenceOnReopen(t *testing.T) {
	dir := t.TempDir()

	j := openTestJournal(t, dir)
	require.NoError(t, j.AppendBatch([]Entry{
		{Sequence: 3, Total: 4, Timestamp: time.Now(), Payload: []byte("a")},
		{Sequence: 8, Total: 11, Timestamp: time.Now(), Payload: []byte("b")},
	}))
	require.NoError(t, j.Close())

	reopened := openTestJournal(t, dir)
	defer reopened.Close()

	last, ok := reopened.LastSequence()
	if !ok {
		t.Fatal("expected recovered last sequence")
	}
	if last != 8 {
		t.Errorf("expected last sequence 8, got %d", last)
	}

	// Entries written before the reopen are still readable.
	got, err := reopened.Read(3)
	require.NoError(t, err)
	if string(got.Payload) != "a" {
		t.Errorf("expected payload %q, got %q", "a", got.Payload)
	}
}

func TestJournal_EmptyLastSequence(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	if _, ok := j.LastSequence(); ok {
		t.Error("empty journal should report no last sequence")
	}
}

func TestJournal_AppendAfterClose(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	require.NoError(t, j.Close())

	err := j.Append(Entry{Sequence: 1, Total: 1, Timestamp: time.Now()})
	if !errors.Is(err, errors.ErrJournalClosed) {
		t.Fatalf("expected journal closed, got %v", err)
	}

	// Close is idempotent.
	require.NoError(t, j.Close())
}

func TestJournal_AppendBatchEmpty(t *testing.T) {
	j := openTestJournal(t, t.TempDir())
	defer j.Close()

	require.NoError(t, j.AppendBatch(nil))
	if _, ok := j.LastSequence(); ok {
		t.Error("empty batch should not advance last sequence")
	}
}

func TestJournal_SyncOption(t *testing.T) {
	j, err := Open(Options{Dir: t.TempDir(), Sync: true})
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Append(Entry{
		Sequence:  0,
		Total:     1,
		Timestamp: time.Now(),
		Payload:   []byte("durable"),
	}))

	got, err := j.Read(0)
	require.NoError(t, err)
	if string(got.Payload) != "durable" {
		t.Errorf("expected payload %q, got %q", "durable", got.Payload)
	}
}
