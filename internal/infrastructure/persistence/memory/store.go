// Package memory keeps drafts in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

// Store is a port.DraftStore backed by a map of deep copies
type Store struct {
	mu     sync.RWMutex
	drafts map[string]*wizard.Draft
}

var _ port.DraftStore = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{drafts: make(map[string]*wizard.Draft)}
}

func (s *Store) Save(_ context.Context, d *wizard.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.ID()] = d.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*wizard.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[id]
	if !ok {
		return nil, port.ErrDraftNotFound
	}
	return d.Clone(), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return port.ErrDraftNotFound
	}
	delete(s.drafts, id)
	return nil
}

func (s *Store) DeleteIdleSince(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, d := range s.drafts {
		if d.UpdatedAt.Before(cutoff) {
			delete(s.drafts, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// Len returns the number of stored drafts
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

func (s *Store) Close() error { return nil }
