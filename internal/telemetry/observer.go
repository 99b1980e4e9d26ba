// Package telemetry reports data discrepancies found while aggregating and
// exposes the service's Prometheus metrics.
package telemetry

import (
	"log/slog"
)

// Kind classifies a discrepancy.
type Kind string

const (
	// KindOrphanCompletion is a completion record matching no prescription of its day.
	KindOrphanCompletion Kind = "orphan_completion"
	// KindMissingDay is a generated week without data for one of its days.
	KindMissingDay Kind = "missing_day"
	// KindMalformedInput is a single value rejected by validation.
	KindMalformedInput Kind = "malformed_input"
	// KindFetchFailed is a snapshot fetch that failed and was replaced by an empty collection.
	KindFetchFailed Kind = "fetch_failed"
)

// Observer receives discrepancies that were ignored during aggregation.
// Implementations must be safe for concurrent use.
type Observer interface {
	Inconsistent(kind Kind, msg string, args ...any)
}

// Nop discards every report.
type Nop struct{}

func (Nop) Inconsistent(Kind, string, ...any) {}

// LogObserver logs discrepancies as warnings and counts them per kind.
type LogObserver struct {
	log     *slog.Logger
	metrics *Manager
}

// NewLogObserver returns an observer writing to log. metrics may be nil.
func NewLogObserver(log *slog.Logger, metrics *Manager) *LogObserver {
	return &LogObserver{log: log, metrics: metrics}
}

func (o *LogObserver) Inconsistent(kind Kind, msg string, args ...any) {
	o.log.Warn(msg, append([]any{"kind", string(kind)}, args...)...)
	if o.metrics != nil {
		o.metrics.CounterDiscrepancies.WithLabelValues(string(kind)).Inc()
	}
}

// OrNop returns obs, or Nop when obs is nil.
func OrNop(obs Observer) Observer {
	if obs == nil {
		return Nop{}
	}
	return obs
}
