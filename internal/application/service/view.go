package service

import (
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

// NoticeLevel is the severity of a user-facing message
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Messages shown to the user after AI operations
const (
	MsgReceiptFailed     = "Could not extract data from receipt. Please try again or enter manually."
	MsgReceiptFilled     = "Receipt data auto-filled! Please review."
	MsgReceiptDiscarded  = "Receipt scan finished after the line changed and was discarded."
	MsgPolicyFailed      = "Failed to read policy file."
	MsgPolicyUpdated     = "Policy updated. New expenses will be analyzed against this file."
	MsgPolicyReset       = "Standard policy restored."
	MsgCompliant         = "Item appears compliant with active policy."
	MsgComplianceFailed  = "AI Policy Check unavailable."
	MsgComplianceSkipped = "AI policy check is not configured."
)

// Notice is a transient message for the client, never an error
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// View is a draft plus the per-request state the client renders
type View struct {
	Draft      *wizard.Draft `json:"draft"`
	Busy       []Operation   `json:"busy,omitempty"`
	StaleLines []int         `json:"staleLines,omitempty"`
	Notice     *Notice       `json:"notice,omitempty"`
}

func notice(level NoticeLevel, msg string) *Notice {
	return &Notice{Level: level, Message: msg}
}
