package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
	"github.com/garyjia/expense-wizard/internal/infrastructure/persistence/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.DraftStore {
		s, err := Open(context.Background(), filepath.Join(t.TempDir(), "drafts.db"), zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "drafts.db")

	s, err := Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	d := wizard.New("Avo.ai", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Save(ctx, d))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, d.ID())
	require.NoError(t, err)
	assert.Equal(t, d.Report.ReportNumber, got.Report.ReportNumber)
}
