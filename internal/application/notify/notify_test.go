package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/expense-wizard/internal/application/dispatcher"
	"github.com/garyjia/expense-wizard/internal/domain/event"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

type mockNotifier struct {
	mu   sync.Mutex
	acks []*wizard.Acknowledgment
	err  error
}

func (m *mockNotifier) NotifySubmitted(_ context.Context, ack *wizard.Acknowledgment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, ack)
	return m.err
}

func finalizedEvent() *event.Event {
	return event.New(event.TypeReportFinalized, "rep-1", map[string]interface{}{
		"reportNumber": "ER-ABCD1234",
		"total":        97.0,
		"lineCount":    2,
		"message":      wizard.SubmittedMessage,
		"submittedAt":  "2024-03-01T10:00:00Z",
	})
}

func TestAckFromEvent(t *testing.T) {
	ack := AckFromEvent(finalizedEvent())

	assert.Equal(t, "rep-1", ack.ReportID)
	assert.Equal(t, "ER-ABCD1234", ack.ReportNumber)
	assert.Equal(t, 97.0, ack.Total)
	assert.Equal(t, 2, ack.LineCount)
	assert.Equal(t, wizard.SubmittedMessage, ack.Message)
	assert.True(t, ack.SubmittedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestAckFromEvent_MissingFields(t *testing.T) {
	evt := event.New(event.TypeReportFinalized, "rep-2", nil)
	ack := AckFromEvent(evt)

	assert.Equal(t, wizard.SubmittedMessage, ack.Message)
	assert.Equal(t, evt.Timestamp, ack.SubmittedAt)
}

func TestRegister_DeliversOnlyFinalized(t *testing.T) {
	d := dispatcher.New(zap.NewNop())
	n := &mockNotifier{}
	Register(d, "mock", n)

	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, event.New(event.TypeLineSaved, "rep-1", nil)))
	require.NoError(t, d.Dispatch(ctx, finalizedEvent()))

	require.Len(t, n.acks, 1)
	assert.Equal(t, "ER-ABCD1234", n.acks[0].ReportNumber)
	assert.Equal(t, []string{"mock"}, d.Handlers(event.TypeReportFinalized))
}

func TestRegister_NotifierErrorSurfaces(t *testing.T) {
	d := dispatcher.New(zap.NewNop())
	Register(d, "broken", &mockNotifier{err: errors.New("lark down")})

	err := d.Dispatch(context.Background(), finalizedEvent())
	assert.ErrorContains(t, err, "lark down")
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.NotifySubmitted(context.Background(), AckFromEvent(finalizedEvent())))

	entries := logs.FilterMessage(wizard.SubmittedMessage).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ER-ABCD1234", entries[0].ContextMap()["report_number"])
}
