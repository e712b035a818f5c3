package reactor

// TrackingScope is the dependency set recorded during one reaction run.
//
// Each key appears at most once; reading the same key again within a run
// updates the observed version instead of adding a second record. Records
// keep the order in which keys were first read.
type TrackingScope struct {
	records []DependencyRecord
	index   map[Key]int
}

// NewTrackingScope returns an empty scope.
func NewTrackingScope() *TrackingScope {
	return &TrackingScope{index: make(map[Key]int)}
}

// Track records a read of key at version.
// It reports whether the key was new to this scope.
func (s *TrackingScope) Track(key Key, version Version) bool {
	if i, ok := s.index[key]; ok {
		s.records[i].Version = version
		return false
	}
	s.index[key] = len(s.records)
	s.records = append(s.records, DependencyRecord{Key: key, Version: version})
	return true
}

// Has reports whether key was read during the current run.
func (s *TrackingScope) Has(key Key) bool {
	_, ok := s.index[key]
	return ok
}

// Len returns the number of distinct keys read.
func (s *TrackingScope) Len() int {
	return len(s.records)
}

// Records returns a copy of the dependency records in first-read order.
func (s *TrackingScope) Records() []DependencyRecord {
	out := make([]DependencyRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Stale reports whether any recorded key has changed in store since it was
// read.
func (s *TrackingScope) Stale(store Store) bool {
	for _, r := range s.records {
		if store.ChangedSince(r.Key, r.Version) {
			return true
		}
	}
	return false
}

// reset discards every record and returns the keys that were dropped.
func (s *TrackingScope) reset() []Key {
	if len(s.records) == 0 {
		return nil
	}
	keys := make([]Key, len(s.records))
	for i, r := range s.records {
		keys[i] = r.Key
	}
	s.records = s.records[:0]
	clear(s.index)
	return keys
}
