package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

func sampleDraft() *wizard.Draft {
	d := wizard.New("Avo.ai", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	d.Report.BusinessPurpose = "Client visit"
	d.Report.ReimbursementType = entity.ReimbursementCheck
	d.Report.LineItems = []entity.ExpenseLineItem{
		{ID: "a", Date: "2024-02-28", ExpenseItem: entity.CategoryMeals, Amount: 42.5, Memo: "Lunch", ReceiptAttached: true},
		{ID: "b", Date: "2024-02-29", ExpenseItem: entity.CategoryMileage, Quantity: 100, PerUnitAmount: entity.MileageRate, Amount: 54.5},
	}
	d.Report.RecomputeTotal()
	return d
}

func TestXLSXExporter_Export(t *testing.T) {
	exporter := NewXLSXExporter(zap.NewNop())
	d := sampleDraft()

	data, err := exporter.Export(d)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, ContentTypeXLSX, exporter.ContentType())

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	tests := []struct {
		cell string
		want string
	}{
		{"A1", "Expense Report " + d.Report.ReportNumber},
		{"B3", "Avo.ai"},
		{"B5", "Client visit"},
		{"B6", entity.ReimbursementCheck},
		{"A11", "#"},
		{"C12", entity.CategoryMeals},
		{"G12", "Lunch"},
		{"L12", "Yes"},
		{"C13", entity.CategoryMileage},
		{"D13", "100"},
		{"L13", "No"},
		{"E14", "Total"},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, err := f.GetCellValue(SheetName, tt.cell)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	raw, err := f.GetCellValue(SheetName, "F14", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "97", raw)
}

func TestXLSXExporter_EmptyReport(t *testing.T) {
	exporter := NewXLSXExporter(nil)
	d := wizard.New("Avo.ai", time.Now())

	data, err := exporter.Export(d)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	label, err := f.GetCellValue(SheetName, "E12")
	require.NoError(t, err)
	assert.Equal(t, "Total", label)
}
