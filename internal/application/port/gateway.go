package port

import (
	"context"
	"errors"

	"github.com/garyjia/expense-wizard/internal/domain/entity"
)

// ErrGatewayDisabled is returned by a gateway configured with no AI provider
var ErrGatewayDisabled = errors.New("ai gateway disabled")

// Document is an uploaded receipt or policy file
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ComplianceVerdict is the advisory outcome of a policy check.
// Warning is empty when Compliant is true.
type ComplianceVerdict struct {
	Compliant bool
	Warning   string
	Skipped   bool
}

// AIGateway defines the generative model operations the wizard relies on
type AIGateway interface {
	// ParseReceipt extracts line fields from a receipt image or PDF
	ParseReceipt(ctx context.Context, doc Document) (*entity.ExtractedLine, error)

	// ExtractPolicyRules summarises a policy document into a numbered rule list
	ExtractPolicyRules(ctx context.Context, doc Document) (string, error)

	// CheckPolicyCompliance evaluates a line against customRules, or the
	// standard rules when customRules is empty
	CheckPolicyCompliance(ctx context.Context, line *entity.ExpenseLineItem, customRules string) (*ComplianceVerdict, error)
}
