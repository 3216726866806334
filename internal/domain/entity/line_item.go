package entity

import (
	"github.com/shopspring/decimal"
)

// ExpenseLineItem is a single expense entry belonging to a report
type ExpenseLineItem struct {
	ID                      string  `json:"id"`
	Date                    string  `json:"date"`
	ExpenseItem             string  `json:"expenseItem"`
	Quantity                float64 `json:"quantity,omitempty"`
	PerUnitAmount           float64 `json:"perUnitAmount,omitempty"`
	Amount                  float64 `json:"amount"`
	Memo                    string  `json:"memo"`
	CostCenter              string  `json:"costCenter"`
	Fund                    string  `json:"fund"`
	AdditionalWorktags      string  `json:"additionalWorktags,omitempty"`
	BusinessReason          string  `json:"businessReason"`
	ReceiptAttached         bool    `json:"receiptAttached"`
	ComplianceWarning       string  `json:"complianceWarning,omitempty"`
	CompliancePolicyVersion int     `json:"compliancePolicyVersion,omitempty"`
}

// NewLineItem returns an empty line dated today
func NewLineItem(today string) ExpenseLineItem {
	return ExpenseLineItem{Date: today}
}

// IsMileage reports whether the line is a distance-based claim
func (l *ExpenseLineItem) IsMileage() bool {
	return l.ExpenseItem == CategoryMileage
}

// DeriveMileage recomputes the amount from the distance for Mileage lines.
// Non-mileage lines are left untouched apart from clearing the per-unit rate.
func (l *ExpenseLineItem) DeriveMileage() {
	if !l.IsMileage() {
		l.PerUnitAmount = 0
		return
	}
	l.PerUnitAmount = MileageRate
	l.Amount = MileageAmount(l.Quantity)
}

// MileageAmount returns distance × MileageRate
func MileageAmount(miles float64) float64 {
	return decimal.NewFromFloat(miles).Mul(decimal.NewFromFloat(MileageRate)).InexactFloat64()
}

// RequiresReceipt reports whether the standard policy demands a receipt for
// this line; the boundary is strictly greater than ReceiptThreshold.
func (l *ExpenseLineItem) RequiresReceipt() bool {
	return l.Amount > ReceiptThreshold && !l.ReceiptAttached
}

// ClearCompliance drops any advisory warning carried by the line
func (l *ExpenseLineItem) ClearCompliance() {
	l.ComplianceWarning = ""
	l.CompliancePolicyVersion = 0
}

// Stale reports whether the carried warning was computed against another policy version
func (l *ExpenseLineItem) Stale(policyVersion int) bool {
	return l.ComplianceWarning != "" && l.CompliancePolicyVersion != policyVersion
}

// ExtractedLine holds the fields a receipt scan may return. Zero values mean "not found".
type ExtractedLine struct {
	Date           string  `json:"date,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
	ExpenseItem    string  `json:"expenseItem,omitempty"`
	Memo           string  `json:"memo,omitempty"`
	BusinessReason string  `json:"businessReason,omitempty"`
}

// IsEmpty reports whether nothing was extracted
func (e *ExtractedLine) IsEmpty() bool {
	return e.Date == "" && e.Amount == 0 && e.ExpenseItem == "" && e.Memo == "" && e.BusinessReason == ""
}
