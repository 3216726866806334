package entity

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseReport is an expense report with its ordered line items
type ExpenseReport struct {
	ID                string            `json:"id"`
	ReportNumber      string            `json:"reportNumber"`
	Date              string            `json:"date"`
	Company           string            `json:"company"`
	BusinessPurpose   string            `json:"businessPurpose"`
	ReimbursementType string            `json:"reimbursementType"`
	Memo              string            `json:"memo"`
	Status            ReportStatus      `json:"status"`
	Total             float64           `json:"total"`
	LineItems         []ExpenseLineItem `json:"lineItems"`
}

// NewReport creates a draft report for company dated today
func NewReport(company, today string) *ExpenseReport {
	id := uuid.NewString()
	if company == "" {
		company = DefaultCompany
	}
	return &ExpenseReport{
		ID:           id,
		ReportNumber: ReportNumberFor(id),
		Date:         today,
		Company:      company,
		Status:       StatusDraft,
		LineItems:    []ExpenseLineItem{},
	}
}

// ReportNumberFor derives the human-facing report number from an id
func ReportNumberFor(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "ER-" + strings.ToUpper(compact)
}

// MissingHeaderFields returns the required header fields that are still empty
func (r *ExpenseReport) MissingHeaderFields() []string {
	var missing []string
	if r.BusinessPurpose == "" {
		missing = append(missing, "businessPurpose")
	}
	if r.ReimbursementType == "" {
		missing = append(missing, "reimbursementType")
	}
	if r.Company == "" {
		missing = append(missing, "company")
	}
	return missing
}

// HeaderComplete reports whether every required header field is present
func (r *ExpenseReport) HeaderComplete() bool {
	return len(r.MissingHeaderFields()) == 0
}

// RecomputeTotal sets Total to the exact sum of the line amounts
func (r *ExpenseReport) RecomputeTotal() {
	r.Total = SumAmounts(r.LineItems)
}

// SumAmounts adds line amounts in decimal so the result does not depend on order
func SumAmounts(items []ExpenseLineItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.Amount))
	}
	return sum.InexactFloat64()
}

// Clone returns a deep copy of the report
func (r *ExpenseReport) Clone() *ExpenseReport {
	if r == nil {
		return nil
	}
	c := *r
	c.LineItems = append([]ExpenseLineItem{}, r.LineItems...)
	return &c
}
