package entity

// ReportStatus is the lifecycle status of an expense report
type ReportStatus string

const (
	StatusDraft     ReportStatus = "Draft"
	StatusSubmitted ReportStatus = "Submitted"
	StatusApproved  ReportStatus = "Approved"
	StatusPaid      ReportStatus = "Paid"
	StatusRejected  ReportStatus = "Rejected"
)

// Expense item categories
const (
	CategoryMeals          = "Meals"
	CategoryTravel         = "Travel"
	CategoryLodging        = "Lodging"
	CategoryMileage        = "Mileage"
	CategoryOfficeSupplies = "Office Supplies"
	CategoryEntertainment  = "Entertainment"
	CategoryMedical        = "Medical"
	CategoryOther          = "Other"
)

// Reimbursement types
const (
	ReimbursementDirectDeposit = "Direct Deposit"
	ReimbursementCheck         = "Check"
	ReimbursementWireTransfer  = "Wire Transfer"
)

const (
	// MileageRate is the reimbursement per mile for the Mileage category
	MileageRate = 0.545

	// ReceiptThreshold is the amount above which the standard policy requires a receipt
	ReceiptThreshold = 75.0

	// DefaultCompany is the company used when none is configured
	DefaultCompany = "Avo.ai"

	// DateLayout is the ISO 8601 calendar date layout used for all dates
	DateLayout = "2006-01-02"
)

var categories = []string{
	CategoryMeals,
	CategoryTravel,
	CategoryLodging,
	CategoryMileage,
	CategoryOfficeSupplies,
	CategoryEntertainment,
	CategoryMedical,
	CategoryOther,
}

var reimbursementTypes = []string{
	ReimbursementDirectDeposit,
	ReimbursementCheck,
	ReimbursementWireTransfer,
}

// Categories returns the expense item categories in display order
func Categories() []string {
	return append([]string(nil), categories...)
}

// ReimbursementTypes returns the supported reimbursement types
func ReimbursementTypes() []string {
	return append([]string(nil), reimbursementTypes...)
}

// IsCategory reports whether name is a known expense item category
func IsCategory(name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}

// IsReimbursementType reports whether name is a supported reimbursement type
func IsReimbursementType(name string) bool {
	for _, t := range reimbursementTypes {
		if t == name {
			return true
		}
	}
	return false
}
