package reactor

import "sync"

// Store is the versioned key/value substrate the runtime reads and writes.
//
// Implementations must call every function registered with Notify exactly
// once per Write, synchronously, after the key's version has been bumped.
// That ordering is what guarantees no write is lost between the version
// bump and the scheduler marking dependents dirty.
type Store interface {
	// Read returns the value and version stored under key.
	// ok is false when the key has no value.
	Read(key Key) (value any, version Version, ok bool)

	// Write stores value under key, bumps its version, notifies and
	// returns the new version.
	Write(key Key, value any) Version

	// Delete removes the key. Deleting does not notify.
	Delete(key Key)

	// ChangedSince reports whether key has been written (or removed) since
	// the given version was observed.
	ChangedSince(key Key, version Version) bool

	// Notify registers fn to be called with the key of every write.
	Notify(fn func(Key))
}

// WriteObserver is called by MemoryStore after every write, before
// notification. It is used by journals and other passive recorders.
type WriteObserver func(key Key, value any, version Version)

// StoreOption configures a MemoryStore.
type StoreOption func(*MemoryStore)

// WithWriteObserver registers an observer for every write.
func WithWriteObserver(fn WriteObserver) StoreOption {
	return func(s *MemoryStore) {
		s.observers = append(s.observers, fn)
	}
}

type storeEntry struct {
	value   any
	version Version
}

// MemoryStore is an in-process Store.
//
// Versions are drawn from a single store-wide clock, so a key that is
// deleted and later written again never repeats a version it had before.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[Key]storeEntry
	clock     Version
	notify    []func(Key)
	observers []WriteObserver
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[Key]storeEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read implements Store.
func (s *MemoryStore) Read(key Key) (any, Version, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, NoVersion, false
	}
	return e.value, e.version, true
}

// Write implements Store.
func (s *MemoryStore) Write(key Key, value any) Version {
	s.mu.Lock()
	version := s.clock
	s.clock++
	s.entries[key] = storeEntry{value: value, version: version}
	notify := s.notify
	observers := s.observers
	s.mu.Unlock()

	for _, obs := range observers {
		obs(key, value, version)
	}
	for _, fn := range notify {
		fn(key)
	}
	return version
}

// Delete implements Store.
func (s *MemoryStore) Delete(key Key) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// ChangedSince implements Store.
func (s *MemoryStore) ChangedSince(key Key, version Version) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return version != NoVersion
	}
	return e.version != version
}

// Notify implements Store.
func (s *MemoryStore) Notify(fn func(Key)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = append(s.notify, fn)
}

// Len returns the number of keys currently stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
