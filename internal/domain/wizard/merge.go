package wizard

import (
	"strings"

	"github.com/garyjia/expense-wizard/internal/domain/entity"
)

// Merge folds scanned receipt fields into line. A non-empty extracted value
// always wins; an empty one never clears what the user typed. The receipt
// is marked attached and Mileage lines re-derive their amount.
func Merge(line *entity.ExpenseLineItem, extracted *entity.ExtractedLine) {
	if extracted != nil {
		if v := strings.TrimSpace(extracted.Date); v != "" {
			line.Date = v
		}
		if extracted.Amount > 0 {
			line.Amount = extracted.Amount
		}
		if v := strings.TrimSpace(extracted.ExpenseItem); v != "" {
			line.ExpenseItem = NormalizeCategory(v)
		}
		if v := strings.TrimSpace(extracted.Memo); v != "" {
			line.Memo = v
		}
		if v := strings.TrimSpace(extracted.BusinessReason); v != "" {
			line.BusinessReason = v
		}
	}

	line.ReceiptAttached = true
	line.DeriveMileage()
}

// NormalizeCategory maps a free-form category onto the catalog, case
// insensitively, falling back to Other.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	for _, c := range entity.Categories() {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	return entity.CategoryOther
}
