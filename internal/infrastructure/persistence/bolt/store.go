// Package bolt stores drafts in a bbolt key/value file.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

var draftsBucket = []byte("drafts")

// Store is a port.DraftStore keyed by report id
type Store struct {
	db *bbolt.DB
}

var _ port.DraftStore = (*Store)(nil)

// Open opens or creates the bolt file at path
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(draftsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(_ context.Context, d *wizard.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling draft: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(draftsBucket).Put([]byte(d.ID()), data)
	})
}

func (s *Store) Get(_ context.Context, id string) (*wizard.Draft, error) {
	var d wizard.Draft
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(draftsBucket).Get([]byte(id))
		if data == nil {
			return port.ErrDraftNotFound
		}
		return json.Unmarshal(data, &d)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(draftsBucket)
		if b.Get([]byte(id)) == nil {
			return port.ErrDraftNotFound
		}
		return b.Delete([]byte(id))
	})
}

// idle is the subset of a stored draft needed to decide expiry
type idle struct {
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Store) DeleteIdleSince(_ context.Context, cutoff time.Time) ([]string, error) {
	var removed []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(draftsBucket)

		err := b.ForEach(func(k, v []byte) error {
			var meta idle
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("unmarshaling draft %s: %w", k, err)
			}
			if meta.UpdatedAt.Before(cutoff) {
				removed = append(removed, string(k))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, id := range removed {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
