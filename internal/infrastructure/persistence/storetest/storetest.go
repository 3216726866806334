// Package storetest holds the behaviour every port.DraftStore must share.
package storetest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func draftAt(updated time.Time) *wizard.Draft {
	d := wizard.New("Avo.ai", base)
	d.Report.BusinessPurpose = "Offsite"
	d.Report.LineItems = append(d.Report.LineItems, entity.ExpenseLineItem{
		ID: "line-1", ExpenseItem: entity.CategoryMeals, Amount: 12.5, ComplianceWarning: "w", CompliancePolicyVersion: 1,
	})
	d.Report.RecomputeTotal()
	d.Editor.Compliance = &wizard.ComplianceResult{Status: wizard.ComplianceWarning, Message: "w", PolicyVersion: 1}
	d.Touch(updated)
	return d
}

// Run exercises a store created fresh by newStore for each case
func Run(t *testing.T, newStore func(t *testing.T) port.DraftStore) {
	ctx := context.Background()

	t.Run("save and get round trip", func(t *testing.T) {
		s := newStore(t)
		d := draftAt(base)
		require.NoError(t, s.Save(ctx, d))

		got, err := s.Get(ctx, d.ID())
		require.NoError(t, err)
		assert.Equal(t, d.Report, got.Report)
		assert.Equal(t, d.Step, got.Step)
		assert.Equal(t, d.Policy, got.Policy)
		assert.Equal(t, d.Editor.Compliance, got.Editor.Compliance)
		assert.True(t, d.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("get returns an independent copy", func(t *testing.T) {
		s := newStore(t)
		d := draftAt(base)
		require.NoError(t, s.Save(ctx, d))

		got, err := s.Get(ctx, d.ID())
		require.NoError(t, err)
		got.Report.LineItems[0].Amount = 999
		d.Report.LineItems[0].Amount = 555

		again, err := s.Get(ctx, d.ID())
		require.NoError(t, err)
		assert.Equal(t, 12.5, again.Report.LineItems[0].Amount)
	})

	t.Run("save overwrites", func(t *testing.T) {
		s := newStore(t)
		d := draftAt(base)
		require.NoError(t, s.Save(ctx, d))

		d.Report.Memo = "updated"
		require.NoError(t, s.Save(ctx, d))

		got, err := s.Get(ctx, d.ID())
		require.NoError(t, err)
		assert.Equal(t, "updated", got.Report.Memo)
	})

	t.Run("missing draft", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, port.ErrDraftNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "nope"), port.ErrDraftNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		d := draftAt(base)
		require.NoError(t, s.Save(ctx, d))
		require.NoError(t, s.Delete(ctx, d.ID()))

		_, err := s.Get(ctx, d.ID())
		assert.ErrorIs(t, err, port.ErrDraftNotFound)
	})

	t.Run("delete idle since", func(t *testing.T) {
		s := newStore(t)
		old := draftAt(base.Add(-2 * time.Hour))
		older := draftAt(base.Add(-3 * time.Hour))
		fresh := draftAt(base)
		for _, d := range []*wizard.Draft{old, older, fresh} {
			require.NoError(t, s.Save(ctx, d))
		}

		removed, err := s.DeleteIdleSince(ctx, base.Add(-time.Hour))
		require.NoError(t, err)

		want := []string{old.ID(), older.ID()}
		sort.Strings(want)
		sort.Strings(removed)
		assert.Equal(t, want, removed)

		_, err = s.Get(ctx, fresh.ID())
		assert.NoError(t, err)
		_, err = s.Get(ctx, old.ID())
		assert.ErrorIs(t, err, port.ErrDraftNotFound)
	})
}
