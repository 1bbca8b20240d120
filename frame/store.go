package frame

import (
	"sort"
	"sync"
)

// Store is a keyed registry of frames shared by datasets, resolvers and
// models. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	frames map[Key]*Frame
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{frames: make(map[Key]*Frame)}
}

// Put registers fr under its key, replacing any previous frame.
func (s *Store) Put(fr *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[fr.Key()] = fr
}

// Get returns the frame stored under key.
func (s *Store) Get(key Key) (*Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fr, ok := s.frames[key]
	return fr, ok
}

// Remove deletes key and reports whether it was present.
func (s *Store) Remove(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.frames[key]
	delete(s.frames, key)
	return ok
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.frames))
	for k := range s.frames {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of stored frames.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}
