// Package disabled provides the gateway used when no AI provider is configured.
package disabled

import (
	"context"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
)

// Gateway refuses document work and skips compliance checks, so the
// wizard remains usable with manual entry only.
type Gateway struct{}

var _ port.AIGateway = Gateway{}

func (Gateway) ParseReceipt(context.Context, port.Document) (*entity.ExtractedLine, error) {
	return nil, port.ErrGatewayDisabled
}

func (Gateway) ExtractPolicyRules(context.Context, port.Document) (string, error) {
	return "", port.ErrGatewayDisabled
}

func (Gateway) CheckPolicyCompliance(context.Context, *entity.ExpenseLineItem, string) (*port.ComplianceVerdict, error) {
	return &port.ComplianceVerdict{Skipped: true}, nil
}
