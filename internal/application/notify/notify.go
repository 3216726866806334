// Package notify delivers submission acknowledgments to notifiers
// subscribed to report.finalized.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/application/dispatcher"
	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/domain/event"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

// LogNotifier writes acknowledgments to the application log
type LogNotifier struct {
	logger *zap.Logger
}

var _ port.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a log notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifySubmitted(_ context.Context, ack *wizard.Acknowledgment) error {
	n.logger.Info(ack.Message,
		zap.String("report_id", ack.ReportID),
		zap.String("report_number", ack.ReportNumber),
		zap.Float64("total", ack.Total),
		zap.Int("line_count", ack.LineCount),
		zap.Time("submitted_at", ack.SubmittedAt))
	return nil
}

// Register subscribes n to report.finalized under name
func Register(d dispatcher.Dispatcher, name string, n port.Notifier) {
	d.Subscribe(event.TypeReportFinalized, name, func(ctx context.Context, evt *event.Event) error {
		return n.NotifySubmitted(ctx, AckFromEvent(evt))
	})
}

// AckFromEvent rebuilds the acknowledgment carried by a report.finalized event
func AckFromEvent(evt *event.Event) *wizard.Acknowledgment {
	ack := &wizard.Acknowledgment{
		ReportID:     evt.ReportID,
		ReportNumber: evt.String("reportNumber"),
		Status:       entity.StatusSubmitted,
		Total:        evt.Float("total"),
		LineCount:    evt.Int("lineCount"),
		Message:      evt.String("message"),
		SubmittedAt:  evt.Timestamp,
	}
	if ts, err := time.Parse(time.RFC3339, evt.String("submittedAt")); err == nil {
		ack.SubmittedAt = ts
	}
	if ack.Message == "" {
		ack.Message = wizard.SubmittedMessage
	}
	return ack
}
