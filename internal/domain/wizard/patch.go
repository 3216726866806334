package wizard

import (
	"math"
	"strings"
	"time"

	"github.com/garyjia/expense-wizard/internal/domain/entity"
)

// HeaderPatch carries header changes; nil fields are left unchanged.
// Company is fixed per deployment and cannot be patched.
type HeaderPatch struct {
	Date              *string `json:"date,omitempty"`
	BusinessPurpose   *string `json:"businessPurpose,omitempty"`
	ReimbursementType *string `json:"reimbursementType,omitempty"`
	Memo              *string `json:"memo,omitempty"`
}

// Validate checks the values the patch would write
func (p HeaderPatch) Validate() error {
	if p.Date != nil {
		if err := validateDate("date", *p.Date, false); err != nil {
			return err
		}
	}
	if p.ReimbursementType != nil {
		t := strings.TrimSpace(*p.ReimbursementType)
		if t != "" && !entity.IsReimbursementType(t) {
			return invalidField("reimbursementType", "is not a supported reimbursement type")
		}
	}
	return nil
}

func (p HeaderPatch) apply(r *entity.ExpenseReport) {
	if p.Date != nil {
		r.Date = strings.TrimSpace(*p.Date)
	}
	if p.BusinessPurpose != nil {
		r.BusinessPurpose = *p.BusinessPurpose
	}
	if p.ReimbursementType != nil {
		r.ReimbursementType = strings.TrimSpace(*p.ReimbursementType)
	}
	if p.Memo != nil {
		r.Memo = *p.Memo
	}
}

// LinePatch carries editor changes; nil fields are left unchanged
type LinePatch struct {
	Date               *string  `json:"date,omitempty"`
	ExpenseItem        *string  `json:"expenseItem,omitempty"`
	Quantity           *float64 `json:"quantity,omitempty"`
	Amount             *float64 `json:"amount,omitempty"`
	Memo               *string  `json:"memo,omitempty"`
	CostCenter         *string  `json:"costCenter,omitempty"`
	Fund               *string  `json:"fund,omitempty"`
	AdditionalWorktags *string  `json:"additionalWorktags,omitempty"`
	BusinessReason     *string  `json:"businessReason,omitempty"`
	ReceiptAttached    *bool    `json:"receiptAttached,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p LinePatch) Empty() bool {
	return p.Date == nil && p.ExpenseItem == nil && p.Quantity == nil && p.Amount == nil &&
		p.Memo == nil && p.CostCenter == nil && p.Fund == nil && p.AdditionalWorktags == nil &&
		p.BusinessReason == nil && p.ReceiptAttached == nil
}

// Validate checks the values the patch would write
func (p LinePatch) Validate() error {
	if p.Date != nil {
		if err := validateDate("date", *p.Date, true); err != nil {
			return err
		}
	}
	if p.ExpenseItem != nil {
		c := strings.TrimSpace(*p.ExpenseItem)
		if c != "" && !entity.IsCategory(c) {
			return invalidField("expenseItem", "is not a known category")
		}
	}
	if p.Quantity != nil && !validNumber(*p.Quantity) {
		return invalidField("quantity", "must be a non-negative number")
	}
	if p.Amount != nil && !validNumber(*p.Amount) {
		return invalidField("amount", "must be a non-negative number")
	}
	return nil
}

func (p LinePatch) apply(l *entity.ExpenseLineItem) {
	if p.Date != nil {
		l.Date = strings.TrimSpace(*p.Date)
	}
	if p.ExpenseItem != nil {
		l.ExpenseItem = strings.TrimSpace(*p.ExpenseItem)
	}
	if p.Quantity != nil {
		l.Quantity = *p.Quantity
	}
	if p.Amount != nil {
		l.Amount = *p.Amount
	}
	if p.Memo != nil {
		l.Memo = *p.Memo
	}
	if p.CostCenter != nil {
		l.CostCenter = *p.CostCenter
	}
	if p.Fund != nil {
		l.Fund = *p.Fund
	}
	if p.AdditionalWorktags != nil {
		l.AdditionalWorktags = *p.AdditionalWorktags
	}
	if p.BusinessReason != nil {
		l.BusinessReason = *p.BusinessReason
	}
	if p.ReceiptAttached != nil {
		l.ReceiptAttached = *p.ReceiptAttached
	}
}

func validNumber(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func validateDate(field, value string, allowEmpty bool) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if allowEmpty {
			return nil
		}
		return invalidField(field, "is required")
	}
	if _, err := time.Parse(entity.DateLayout, value); err != nil {
		return invalidField(field, "must be YYYY-MM-DD")
	}
	return nil
}
