package metrics

import (
	"sync/atomic"
)

// Metrics tracks operational metrics.
type Metrics struct {
	Polls              uint64 `json:"polls"`
	ChangesDetected    uint64 `json:"changes_detected"`
	PollsWithoutChange uint64 `json:"polls_without_change"`
	Checkouts          uint64 `json:"checkouts"`
	EnrichmentFailures uint64 `json:"enrichment_failures"`
	VCSFailures        uint64 `json:"vcs_failures"`
	ConnectionChecks   uint64 `json:"connection_checks"`
}

var global = &Metrics{}

// Poll increments the count of polls served.
func Poll() { atomic.AddUint64(&global.Polls, 1) }

// ChangeDetected increments the count of polls that reported a change.
func ChangeDetected() { atomic.AddUint64(&global.ChangesDetected, 1) }

// NoChange increments the count of polls that found nothing new.
func NoChange() { atomic.AddUint64(&global.PollsWithoutChange, 1) }

// Checkout increments the count of checkouts performed.
func Checkout() { atomic.AddUint64(&global.Checkouts, 1) }

// EnrichmentFailed increments the count of failed change request lookups.
func EnrichmentFailed() { atomic.AddUint64(&global.EnrichmentFailures, 1) }

// VCSFailed increments the count of failed version control operations.
func VCSFailed() { atomic.AddUint64(&global.VCSFailures, 1) }

// ConnectionChecked increments the count of connection checks.
func ConnectionChecked() { atomic.AddUint64(&global.ConnectionChecks, 1) }

// Get returns a snapshot of the current metrics.
func Get() Metrics {
	return Metrics{
		Polls:              atomic.LoadUint64(&global.Polls),
		ChangesDetected:    atomic.LoadUint64(&global.ChangesDetected),
		PollsWithoutChange: atomic.LoadUint64(&global.PollsWithoutChange),
		Checkouts:          atomic.LoadUint64(&global.Checkouts),
		EnrichmentFailures: atomic.LoadUint64(&global.EnrichmentFailures),
		VCSFailures:        atomic.LoadUint64(&global.VCSFailures),
		ConnectionChecks:   atomic.LoadUint64(&global.ConnectionChecks),
	}
}

// Reset resets all metrics to zero (useful for testing).
func Reset() {
	atomic.StoreUint64(&global.Polls, 0)
	atomic.StoreUint64(&global.ChangesDetected, 0)
	atomic.StoreUint64(&global.PollsWithoutChange, 0)
	atomic.StoreUint64(&global.Checkouts, 0)
	atomic.StoreUint64(&global.EnrichmentFailures, 0)
	atomic.StoreUint64(&global.VCSFailures, 0)
	atomic.StoreUint64(&global.ConnectionChecks, 0)
}
