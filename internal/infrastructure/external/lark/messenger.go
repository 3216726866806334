package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

// Messenger delivers acknowledgments as Lark text messages
type Messenger struct {
	client    *lark.Client
	receiveID string
	logger    *zap.Logger
}

var _ port.Notifier = (*Messenger)(nil)

// NewMessenger creates a messenger sending to receiveID by open_id
func NewMessenger(client *lark.Client, receiveID string, logger *zap.Logger) *Messenger {
	return &Messenger{
		client:    client,
		receiveID: receiveID,
		logger:    nopIfNil(logger),
	}
}

// SendText sends a plain text message and returns its message id
func (m *Messenger) SendText(ctx context.Context, openID, text string) (string, error) {
	if openID == "" {
		return "", errors.New("openID cannot be empty")
	}
	if text == "" {
		return "", errors.New("text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType("open_id").
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := m.client.Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message", zap.String("receive_id", openID), zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Info("Message sent", zap.String("message_id", messageID), zap.String("receive_id", openID))
	return messageID, nil
}

// NotifySubmitted sends the acknowledgment to the configured recipient
func (m *Messenger) NotifySubmitted(ctx context.Context, ack *wizard.Acknowledgment) error {
	_, err := m.SendText(ctx, m.receiveID, FormatAcknowledgment(ack))
	return err
}

// FormatAcknowledgment renders the message body for a submitted report
func FormatAcknowledgment(ack *wizard.Acknowledgment) string {
	return fmt.Sprintf("%s\nReport: %s\nLines: %d\nTotal: $%.2f\nSubmitted: %s",
		ack.Message, ack.ReportNumber, ack.LineCount, ack.Total,
		ack.SubmittedAt.Format("2006-01-02 15:04 MST"))
}
