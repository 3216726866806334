// Package export renders drafts as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/application/port"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
)

// ContentTypeXLSX is the media type of the rendered workbook
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet layout
const (
	SheetName = "Expense Report"

	cellTitle = "A1"

	// Header block occupies rows 3-9, label in A and value in B
	headerRowStart = 3

	// Line table header row; items follow directly below
	tableHeaderRow = 11
)

var tableColumns = []string{
	"#", "Date", "Expense Item", "Quantity", "Per Unit", "Amount",
	"Memo", "Cost Center", "Fund", "Worktags", "Business Reason", "Receipt", "Compliance",
}

// XLSXExporter builds a read-only spreadsheet of a draft
type XLSXExporter struct {
	logger *zap.Logger
}

var _ port.Exporter = (*XLSXExporter)(nil)

// NewXLSXExporter creates an exporter
func NewXLSXExporter(logger *zap.Logger) *XLSXExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &XLSXExporter{logger: logger}
}

// ContentType returns the xlsx media type
func (e *XLSXExporter) ContentType() string {
	return ContentTypeXLSX
}

// Export renders header, line table and total into a single sheet
func (e *XLSXExporter) Export(d *wizard.Draft) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	money, err := file.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := e.fillHeader(file, d, bold); err != nil {
		return nil, fmt.Errorf("failed to fill header: %w", err)
	}
	totalRow, err := e.fillLines(file, d, bold, money)
	if err != nil {
		return nil, fmt.Errorf("failed to fill lines: %w", err)
	}

	if err := file.SetColWidth(SheetName, "A", "B", 18); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}
	if err := file.SetColWidth(SheetName, "C", "M", 16); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Draft exported",
		zap.String("report_id", d.ID()),
		zap.Int("line_count", len(d.Report.LineItems)),
		zap.Int("total_row", totalRow))
	return buf.Bytes(), nil
}

func (e *XLSXExporter) fillHeader(file *excelize.File, d *wizard.Draft, bold int) error {
	r := d.Report
	if err := file.SetCellValue(SheetName, cellTitle, fmt.Sprintf("Expense Report %s", r.ReportNumber)); err != nil {
		return err
	}
	if err := file.SetCellStyle(SheetName, cellTitle, cellTitle, bold); err != nil {
		return err
	}

	rows := [][2]interface{}{
		{"Company", r.Company},
		{"Date", r.Date},
		{"Business Purpose", r.BusinessPurpose},
		{"Reimbursement Type", r.ReimbursementType},
		{"Memo", r.Memo},
		{"Status", string(r.Status)},
		{"Policy", d.Policy.Name},
	}
	for i, kv := range rows {
		row := headerRowStart + i
		if err := file.SetSheetRow(SheetName, fmt.Sprintf("A%d", row), &[]interface{}{kv[0], kv[1]}); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		label := fmt.Sprintf("A%d", row)
		if err := file.SetCellStyle(SheetName, label, label, bold); err != nil {
			return err
		}
	}
	return nil
}

// fillLines writes the table and returns the total row number
func (e *XLSXExporter) fillLines(file *excelize.File, d *wizard.Draft, bold, money int) (int, error) {
	headerCells := make([]interface{}, len(tableColumns))
	for i, c := range tableColumns {
		headerCells[i] = c
	}
	start := fmt.Sprintf("A%d", tableHeaderRow)
	if err := file.SetSheetRow(SheetName, start, &headerCells); err != nil {
		return 0, err
	}
	end, err := excelize.CoordinatesToCellName(len(tableColumns), tableHeaderRow)
	if err != nil {
		return 0, err
	}
	if err := file.SetCellStyle(SheetName, start, end, bold); err != nil {
		return 0, err
	}

	for i, l := range d.Report.LineItems {
		row := tableHeaderRow + 1 + i
		receipt := "No"
		if l.ReceiptAttached {
			receipt = "Yes"
		}

		var quantity, perUnit interface{}
		if l.IsMileage() {
			quantity, perUnit = l.Quantity, l.PerUnitAmount
		}

		cells := []interface{}{
			i + 1, l.Date, l.ExpenseItem, quantity, perUnit, l.Amount,
			l.Memo, l.CostCenter, l.Fund, l.AdditionalWorktags, l.BusinessReason, receipt, l.ComplianceWarning,
		}
		if err := file.SetSheetRow(SheetName, fmt.Sprintf("A%d", row), &cells); err != nil {
			return 0, fmt.Errorf("line %d: %w", i+1, err)
		}
		amount := fmt.Sprintf("F%d", row)
		if err := file.SetCellStyle(SheetName, amount, amount, money); err != nil {
			return 0, err
		}
	}

	totalRow := tableHeaderRow + 1 + len(d.Report.LineItems)
	label := fmt.Sprintf("E%d", totalRow)
	total := fmt.Sprintf("F%d", totalRow)
	if err := file.SetCellValue(SheetName, label, "Total"); err != nil {
		return 0, err
	}
	if err := file.SetCellValue(SheetName, total, d.Report.Total); err != nil {
		return 0, err
	}
	if err := file.SetCellStyle(SheetName, label, label, bold); err != nil {
		return 0, err
	}
	if err := file.SetCellStyle(SheetName, total, total, money); err != nil {
		return 0, err
	}
	return totalRow, nil
}
