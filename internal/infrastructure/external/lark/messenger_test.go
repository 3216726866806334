package lark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

type fakeLark struct {
	mu       sync.Mutex
	messages []map[string]string
	queries  []string
	code     int
}

func (f *fakeLark) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/tenant_access_token/internal"):
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","tenant_access_token":"t-test","expire":7200}`))
	case strings.HasSuffix(r.URL.Path, "/im/v1/messages"):
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.messages = append(f.messages, body)
		f.queries = append(f.queries, r.URL.Query().Get("receive_id_type"))
		code := f.code
		f.mu.Unlock()

		if code != 0 {
			_, _ = w.Write([]byte(`{"code":230001,"msg":"invalid receive_id"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"msg":"success","data":{"message_id":"om_1"}}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestMessenger(t *testing.T) (*Messenger, *fakeLark) {
	t.Helper()
	fake := &fakeLark{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := NewSDKClient(Config{AppID: "cli_test", AppSecret: "secret", BaseURL: srv.URL}, srv.Client())
	return NewMessenger(client, "ou_accounting", zap.NewNop()), fake
}

func TestMessenger_NotifySubmitted(t *testing.T) {
	m, fake := newTestMessenger(t)
	ack := &wizard.Acknowledgment{
		ReportNumber: "ER-1234ABCD",
		Total:        97,
		LineCount:    2,
		Message:      wizard.SubmittedMessage,
		SubmittedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, m.NotifySubmitted(context.Background(), ack))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.messages, 1)
	assert.Equal(t, "open_id", fake.queries[0])
	assert.Equal(t, "ou_accounting", fake.messages[0]["receive_id"])
	assert.Equal(t, "text", fake.messages[0]["msg_type"])

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(fake.messages[0]["content"]), &content))
	assert.Contains(t, content["text"], "ER-1234ABCD")
	assert.Contains(t, content["text"], "$97.00")
}

func TestMessenger_SendTextAPIError(t *testing.T) {
	m, fake := newTestMessenger(t)
	fake.mu.Lock()
	fake.code = 1
	fake.mu.Unlock()

	_, err := m.SendText(context.Background(), "ou_x", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "230001")
}

func TestMessenger_SendTextValidation(t *testing.T) {
	m, _ := newTestMessenger(t)

	_, err := m.SendText(context.Background(), "", "hello")
	assert.Error(t, err)
	_, err = m.SendText(context.Background(), "ou_x", "")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{AppID: "a", AppSecret: "b"}.Validate())
	assert.NoError(t, Config{AppID: "a", AppSecret: "b", ReceiveID: "ou"}.Validate())
}

func TestFormatAcknowledgment(t *testing.T) {
	text := FormatAcknowledgment(&wizard.Acknowledgment{
		ReportNumber: "ER-1", Total: 12.5, LineCount: 1, Message: wizard.SubmittedMessage,
		SubmittedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	assert.True(t, strings.HasPrefix(text, wizard.SubmittedMessage))
	assert.Contains(t, text, "Lines: 1")
	assert.Contains(t, text, "$12.50")
}
