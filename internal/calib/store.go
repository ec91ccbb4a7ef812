package calib

import (
	"errors"
	"sync"

	"github.com/reatured/handvis/internal/landmark"
)

// ErrNotFound is returned when no calibration is stored for a hand.
var ErrNotFound = errors.New("calibration not found")

// Store persists calibration records keyed by hand side. Implementations:
// MemoryStore for tests, the sqlite-backed repository for production.
type Store interface {
	Save(rec *Record) error
	Load(side landmark.Side) (*Record, error)
	Delete(side landmark.Side) error
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu      sync.Mutex
	records map[landmark.Side]*Record

	// FailSaves makes Save return an error; used to exercise the
	// fire-and-forget degradation path.
	FailSaves bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[landmark.Side]*Record)}
}

// Save stores a copy of the record.
func (s *MemoryStore) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves {
		return errors.New("save disabled")
	}
	cp := *rec
	s.records[rec.Side] = &cp
	return nil
}

// Load returns the stored record for a side, or ErrNotFound.
func (s *MemoryStore) Load(side landmark.Side) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[side]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// Delete removes the stored record for a side.
func (s *MemoryStore) Delete(side landmark.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[side]; !ok {
		return ErrNotFound
	}
	delete(s.records, side)
	return nil
}
