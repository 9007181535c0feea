package workflow

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for unknown workflow ids.
	ErrNotFound = errors.New("workflow not found")
	// ErrNotCompleted is returned when an operation needs a completed run.
	ErrNotCompleted = errors.New("workflow not completed yet")
)

// Store holds run records and logs keyed by workflow id. Reads return copies,
// so callers never observe a record while it is being modified.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	logs    map[string][]LogEntry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		logs:    make(map[string][]LogEntry),
	}
}

// Create adds a new record with an empty log.
func (s *Store) Create(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("workflow %s already exists", rec.ID)
	}
	c := rec.clone()
	s.records[rec.ID] = &c
	s.logs[rec.ID] = []LogEntry{}
	return nil
}

// Get returns a snapshot of the record.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.clone(), nil
}

// Update applies fn to the stored record under the write lock.
func (s *Store) Update(id string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	fn(rec)
	return nil
}

// AppendLog adds entry to the run's log.
func (s *Store) AppendLog(id string, entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[id]; !ok {
		return ErrNotFound
	}
	s.logs[id] = append(s.logs[id], entry.clone())
	return nil
}

// Logs returns a copy of the run's log in append order.
func (s *Store) Logs(id string) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs, ok := s.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]LogEntry, len(logs))
	for i, e := range logs {
		out[i] = e.clone()
	}
	return out, nil
}

// Delete removes a run and its log. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.records[id]
	delete(s.records, id)
	delete(s.logs, id)
	return existed
}

// IDs returns all workflow ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep removes finished runs that completed before cutoff and returns their ids.
func (s *Store) Sweep(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, rec := range s.records {
		if !rec.Finished() || rec.CompletedAt == nil || !rec.CompletedAt.Before(cutoff) {
			continue
		}
		delete(s.records, id)
		delete(s.logs, id)
		removed = append(removed, id)
	}
	sort.Strings(removed)
	return removed
}
