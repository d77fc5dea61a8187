package hls

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hls-audio-server/internal/platform/metrics"

	"github.com/jonboulle/clockwork"
)

// PurgeScheduler removes evicted segments from the store once their grace period ends.
// Each scheduled purge is a one-shot timer keyed by segment identifier.
type PurgeScheduler struct {
	state   *SharedState
	clock   clockwork.Clock
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]pendingPurge
	stopped bool
}

type pendingPurge struct {
	fireAt time.Time
	timer  clockwork.Timer
}

// NewPurgeScheduler returns a scheduler removing segments from state.
// Metrics may be nil.
func NewPurgeScheduler(state *SharedState, clock clockwork.Clock, log *slog.Logger, m *metrics.Metrics) *PurgeScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PurgeScheduler{
		state:   state,
		clock:   clock,
		log:     log,
		metrics: m,
		pending: make(map[string]pendingPurge),
	}
}

// Schedule removes id from the store after the given delay.
// Scheduling an id that is already pending replaces the earlier timer.
func (p *PurgeScheduler) Schedule(id string, after time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	if prev, ok := p.pending[id]; ok {
		prev.timer.Stop()
	}
	// p.mu is held until the entry is recorded, so a timer that fires
	// immediately still finds it.
	p.pending[id] = pendingPurge{
		fireAt: p.clock.Now().Add(after),
		timer:  p.clock.AfterFunc(after, func() { p.purge(id) }),
	}
	if p.metrics != nil {
		p.metrics.SetPendingPurges(len(p.pending))
	}
}

func (p *PurgeScheduler) purge(id string) {
	p.mu.Lock()
	if _, ok := p.pending[id]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pending, id)
	if p.metrics != nil {
		p.metrics.SetPendingPurges(len(p.pending))
	}
	p.mu.Unlock()

	var err error
	p.state.Do(func(st *State) {
		err = st.Store.Remove(id)
	})
	if err != nil {
		// The playlist evicted id, so the store must still hold it.
		p.log.Error("purge of evicted segment failed", slog.String("segment", id), slog.String("error", err.Error()))
		panic(fmt.Sprintf("hls: store lost evicted segment %s: %v", id, err))
	}

	p.log.Debug("segment purged", slog.String("segment", id))
	if p.metrics != nil {
		p.metrics.IncSegmentsPurged()
	}
}

// Pending returns the fire time of every scheduled purge.
func (p *PurgeScheduler) Pending() map[string]time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]time.Time, len(p.pending))
	for id, pp := range p.pending {
		out[id] = pp.fireAt
	}
	return out
}

// Stop cancels every pending purge and rejects new ones. It returns the number cancelled.
func (p *PurgeScheduler) Stop() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true
	n := len(p.pending)
	for id, pp := range p.pending {
		pp.timer.Stop()
		delete(p.pending, id)
	}
	return n
}
