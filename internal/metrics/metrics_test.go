package metrics

import (
	"sync"
	"testing"
)

func TestCounters(t *testing.T) {
	tests := []struct {
		name string
		inc  func()
		get  func(Metrics) uint64
	}{
		{"Poll", Poll, func(m Metrics) uint64 { return m.Polls }},
		{"ChangeDetected", ChangeDetected, func(m Metrics) uint64 { return m.ChangesDetected }},
		{"NoChange", NoChange, func(m Metrics) uint64 { return m.PollsWithoutChange }},
		{"Checkout", Checkout, func(m Metrics) uint64 { return m.Checkouts }},
		{"EnrichmentFailed", EnrichmentFailed, func(m Metrics) uint64 { return m.EnrichmentFailures }},
		{"VCSFailed", VCSFailed, func(m Metrics) uint64 { return m.VCSFailures }},
		{"ConnectionChecked", ConnectionChecked, func(m Metrics) uint64 { return m.ConnectionChecks }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			tt.inc()
			if got := tt.get(Get()); got != 1 {
				t.Errorf("expected 1, got %d", got)
			}
		})
	}
}

func TestReset(t *testing.T) {
	Poll()
	ChangeDetected()
	NoChange()
	Checkout()
	EnrichmentFailed()
	VCSFailed()
	ConnectionChecked()

	Reset()

	if m := Get(); m != (Metrics{}) {
		t.Errorf("expected zero metrics after reset, got %+v", m)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	Reset()

	const iterations = 1000
	var wg sync.WaitGroup
	wg.Add(iterations * 2)

	for i := 0; i < iterations; i++ {
		go func() {
			Poll()
			wg.Done()
		}()
		go func() {
			ChangeDetected()
			wg.Done()
		}()
	}

	wg.Wait()
	m := Get()

	if m.Polls != iterations {
		t.Errorf("expected Polls=%d, got %d", iterations, m.Polls)
	}
	if m.ChangesDetected != iterations {
		t.Errorf("expected ChangesDetected=%d, got %d", iterations, m.ChangesDetected)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	Reset()

	Poll()
	snapshot := Get()

	// Increment again after snapshot
	Poll()

	if snapshot.Polls != 1 {
		t.Errorf("snapshot should be immutable, expected 1, got %d", snapshot.Polls)
	}
	if current := Get(); current.Polls != 2 {
		t.Errorf("current should be 2, got %d", current.Polls)
	}
}
