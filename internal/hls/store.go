package hls

import "fmt"

// SegmentStore holds tagged segment bytes keyed by segment identifier.
// It contains every segment in the playlist plus evicted segments still in their grace period.
// Implementations need not be safe for concurrent use; SharedState serializes access.
type SegmentStore interface {
	Insert(id string, data []byte)
	Remove(id string) error
	Get(id string) ([]byte, bool)
	Len() int
}

// InMemoryStore is an in-memory implementation of SegmentStore.
type InMemoryStore struct {
	segments map[string][]byte
}

// NewInMemoryStore returns an empty store sized for capacity segments.
func NewInMemoryStore(capacity int) *InMemoryStore {
	return &InMemoryStore{
		segments: make(map[string][]byte, capacity),
	}
}

// Insert implements SegmentStore.Insert. An existing entry is overwritten.
func (s *InMemoryStore) Insert(id string, data []byte) {
	s.segments[id] = data
}

// Remove implements SegmentStore.Remove.
func (s *InMemoryStore) Remove(id string) error {
	if _, ok := s.segments[id]; !ok {
		return fmt.Errorf("remove %s: %w", id, ErrSegmentNotFound)
	}
	delete(s.segments, id)
	return nil
}

// Get implements SegmentStore.Get.
func (s *InMemoryStore) Get(id string) ([]byte, bool) {
	data, ok := s.segments[id]
	return data, ok
}

// Len implements SegmentStore.Len.
func (s *InMemoryStore) Len() int {
	return len(s.segments)
}
