package status

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMetricMapReturnsSamePointer(t *testing.T) {
	m := NewMetricMap[atomic.Int64]()
	a := m.Get(SpinsStarted)
	a.Add(2)
	if b := m.Get(SpinsStarted); b != a || b.Load() != 2 {
		t.Errorf("Expected cached metric with value 2, got %p value %d", b, b.Load())
	}
	if !m.Has(SpinsStarted) || m.Has(SpinsResolved) {
		t.Error("Expected Has to report only registered keys")
	}
}

func TestMetricMapConcurrentGet(t *testing.T) {
	m := NewMetricMap[atomic.Int64]()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.Get(TicksPlayed).Add(1)
			}
		}()
	}
	wg.Wait()
	if got := m.Get(TicksPlayed).Load(); got != 1600 {
		t.Errorf("Expected 1600 ticks, got %d", got)
	}
	if m.Count() != 1 {
		t.Errorf("Expected one metric, got %d", m.Count())
	}
}

func TestAtomicFloatAdd(t *testing.T) {
	var f AtomicFloat
	f.Set(1.5)
	if got := f.Add(2.25); got != 3.75 {
		t.Errorf("Expected 3.75, got %v", got)
	}
}

func TestAtomicStringTruncatesRunes(t *testing.T) {
	var s AtomicString
	if s.Load() != "" {
		t.Error("Expected zero value to read empty")
	}
	long := strings.Repeat("é", MaxStringLen+5)
	s.Store(long)
	if got := []rune(s.Load()); len(got) != MaxStringLen {
		t.Errorf("Expected %d runes, got %d", MaxStringLen, len(got))
	}
}

func TestRegistryLogValue(t *testing.T) {
	r := NewRegistry()
	r.Ints.Get(SpinsResolved).Add(3)
	r.Floats.Get(AuthorityWaitMs).Set(12.5)
	r.Strings.Get(LastWinner).Store("Brin")

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("session", "stats", r)

	out := buf.String()
	for _, want := range []string{"stats.spins.resolved=3", "stats.authority.wait_ms=12.5", "stats.winner.last=Brin"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
	if r.TotalCount() != 3 {
		t.Errorf("Expected 3 metrics, got %d", r.TotalCount())
	}
}
