package hls

import (
	"bytes"
	"sync"

	"github.com/jonboulle/clockwork"
)

// State is everything a tick mutates. It is only reachable through SharedState.Do.
type State struct {
	Playlist *Playlist
	// Document is the serialized playlist served to clients.
	Document  []byte
	Store     SegmentStore
	Timestamp Timestamp
}

// SharedState guards State with a single exclusive lock shared by the tick loop,
// purge tasks, and HTTP handlers. Critical sections must not block.
type SharedState struct {
	mu    sync.Mutex
	state State
}

// Snapshot is a consistent copy of the observable state.
type Snapshot struct {
	MediaSequence uint64
	Segments      []Segment
	StoreLen      int
	Timestamp     uint64
}

// NewSharedState returns state holding an empty playlist and store.
// If store is nil, an InMemoryStore is used.
func NewSharedState(cfg Config, clock clockwork.Clock, store SegmentStore) *SharedState {
	if store == nil {
		store = NewInMemoryStore(cfg.SegmentsToKeep)
	}
	pl := NewPlaylist(cfg, clock)
	return &SharedState{
		state: State{
			Playlist: pl,
			Document: pl.Document(),
			Store:    store,
		},
	}
}

// Do runs fn with exclusive access to the state. The lock is released when fn returns or panics.
func (s *SharedState) Do(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Document returns a copy of the current playlist document.
func (s *SharedState) Document() []byte {
	var doc []byte
	s.Do(func(st *State) {
		doc = bytes.Clone(st.Document)
	})
	return doc
}

// Segment returns a copy of the stored bytes for id.
func (s *SharedState) Segment(id string) ([]byte, bool) {
	var (
		data []byte
		ok   bool
	)
	s.Do(func(st *State) {
		data, ok = st.Store.Get(id)
		if ok {
			data = bytes.Clone(data)
		}
	})
	return data, ok
}

// Snapshot returns a consistent view of the playlist, store size, and clock.
func (s *SharedState) Snapshot() Snapshot {
	var snap Snapshot
	s.Do(func(st *State) {
		snap = Snapshot{
			MediaSequence: st.Playlist.MediaSequence(),
			Segments:      st.Playlist.Segments(),
			StoreLen:      st.Store.Len(),
			Timestamp:     st.Timestamp.Value(),
		}
	})
	return snap
}
