package port

import (
	"context"

	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

// Notifier delivers a submission acknowledgment outside the HTTP response
type Notifier interface {
	NotifySubmitted(ctx context.Context, ack *wizard.Acknowledgment) error
}

// Exporter renders a draft as a downloadable document
type Exporter interface {
	Export(d *wizard.Draft) ([]byte, error)
	ContentType() string
}
