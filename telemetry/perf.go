package telemetry

import (
	"log/slog"
	"sort"
	"time"
)

// Phase names for one training generation.
const (
	PhaseEvaluate = "evaluate"
	PhaseSelect   = "select"
	PhaseRefill   = "refill"
	PhasePersist  = "persist"
)

// PhaseTimer records how long each phase of a generation took.
// Not safe for concurrent use; only the generation loop drives it.
type PhaseTimer struct {
	phases     map[string]time.Duration
	start      time.Time
	phaseStart time.Time
	lastPhase  string
	total      time.Duration
}

// NewPhaseTimer creates a timer and starts it.
func NewPhaseTimer() *PhaseTimer {
	now := time.Now()
	return &PhaseTimer{
		phases:     make(map[string]time.Duration),
		start:      now,
		phaseStart: now,
	}
}

// StartPhase ends the current phase, if any, and begins timing phase.
func (p *PhaseTimer) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.phases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// Stop ends the current phase and fixes the total.
func (p *PhaseTimer) Stop() {
	now := time.Now()
	if p.lastPhase != "" {
		p.phases[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}
	p.total = now.Sub(p.start)
}

// Phase returns the accumulated time for one phase.
func (p *PhaseTimer) Phase(name string) time.Duration {
	return p.phases[name]
}

// Total returns the wall time between creation and Stop.
func (p *PhaseTimer) Total() time.Duration {
	return p.total
}

// SortedNames returns phase names sorted by time spent, descending.
func (p *PhaseTimer) SortedNames() []string {
	names := make([]string, 0, len(p.phases))
	for name := range p.phases {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if p.phases[names[i]] != p.phases[names[j]] {
			return p.phases[names[i]] > p.phases[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// LogValue implements slog.LogValuer.
func (p *PhaseTimer) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(p.phases)+1)
	attrs = append(attrs, slog.Duration("total", p.total))
	for _, name := range p.SortedNames() {
		attrs = append(attrs, slog.Duration(name, p.phases[name]))
	}
	return slog.GroupValue(attrs...)
}
