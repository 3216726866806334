package disabled

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
)

func TestGateway(t *testing.T) {
	g := Gateway{}
	ctx := context.Background()

	_, err := g.ParseReceipt(ctx, port.Document{})
	assert.ErrorIs(t, err, port.ErrGatewayDisabled)

	_, err = g.ExtractPolicyRules(ctx, port.Document{})
	assert.ErrorIs(t, err, port.ErrGatewayDisabled)

	verdict, err := g.CheckPolicyCompliance(ctx, &entity.ExpenseLineItem{Amount: 10}, "")
	require.NoError(t, err)
	assert.True(t, verdict.Skipped)
	assert.False(t, verdict.Compliant)
}
