package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

// ErrDraftNotFound is returned when no draft exists for an id
var ErrDraftNotFound = errors.New("draft not found")

// DraftStore keeps in-progress drafts. Implementations store and return
// copies so callers never share line slices with the store.
type DraftStore interface {
	Save(ctx context.Context, d *wizard.Draft) error
	Get(ctx context.Context, id string) (*wizard.Draft, error)
	Delete(ctx context.Context, id string) error

	// DeleteIdleSince removes drafts last updated before cutoff and returns their ids
	DeleteIdleSince(ctx context.Context, cutoff time.Time) ([]string, error)

	Close() error
}
