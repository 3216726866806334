package dispatcher

import (
	"context"

	"github.com/garyjia/expense-wizard/internal/domain/event"
)

// Handler reacts to a draft event
type Handler func(ctx context.Context, evt *event.Event) error

type subscription struct {
	name    string
	handler Handler
}
