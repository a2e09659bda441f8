// Package registry holds the in-memory feed registry for one run. The set of
// sources is fixed at startup; only per-source fetch state (failure counters,
// conditional GET validators, disabled flag) changes between cycles.
package registry

import (
	"time"

	"mouldwire/internal/domain/entity"
)

// DefaultFailureThreshold is the number of consecutive failed cycles after
// which a source is flagged disabled.
const DefaultFailureThreshold = 10

// Registry is the read-mostly collection of feed sources. Sources themselves
// guard their mutable state, so a Registry is safe for concurrent use by the
// fetch workers.
type Registry struct {
	sources          []*entity.FeedSource
	failureThreshold int
}

// New builds a Registry over the given sources. A threshold of 0 falls back
// to DefaultFailureThreshold.
func New(sources []*entity.FeedSource, failureThreshold int) *Registry {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	return &Registry{
		sources:          sources,
		failureThreshold: failureThreshold,
	}
}

// All returns every registered source, including disabled ones. Disabled
// sources stay visible so operators can see what was turned off and why.
func (r *Registry) All() []*entity.FeedSource {
	return r.sources
}

// Active returns the sources eligible for polling this cycle.
func (r *Registry) Active() []*entity.FeedSource {
	active := make([]*entity.FeedSource, 0, len(r.sources))
	for _, src := range r.sources {
		if !src.Disabled() {
			active = append(active, src)
		}
	}
	return active
}

// FailureThreshold returns the configured consecutive-failure threshold.
func (r *Registry) FailureThreshold() int {
	return r.failureThreshold
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// SourceState is a point-in-time view of one source for reporting.
type SourceState struct {
	URL                 string
	Name                string
	Category            string
	Disabled            bool
	ConsecutiveFailures int
	LastFetchedAt       time.Time
}

// Snapshot returns the current state of every source. The returned slice is
// detached from the registry and safe to hold across cycles.
func (r *Registry) Snapshot() []SourceState {
	states := make([]SourceState, 0, len(r.sources))
	for _, src := range r.sources {
		states = append(states, SourceState{
			URL:                 src.URL,
			Name:                src.Name,
			Category:            src.Category,
			Disabled:            src.Disabled(),
			ConsecutiveFailures: src.ConsecutiveFailures(),
			LastFetchedAt:       src.LastFetchedAt(),
		})
	}
	return states
}

// DisabledCount returns how many sources are currently flagged disabled.
func (r *Registry) DisabledCount() int {
	n := 0
	for _, src := range r.sources {
		if src.Disabled() {
			n++
		}
	}
	return n
}
