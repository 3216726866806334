package event

// Type identifies the type of domain event
type Type string

const (
	TypeReportCreated         Type = "report.created"
	TypeReportHeaderSubmitted Type = "report.header_submitted"
	TypeLineSaved             Type = "line.saved"
	TypeLineDeleted           Type = "line.deleted"
	TypePolicyReplaced        Type = "policy.replaced"
	TypeComplianceChecked     Type = "compliance.checked"
	TypeReportFinalized       Type = "report.finalized"
	TypeReportAbandoned       Type = "report.abandoned"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeReportCreated,
		TypeReportHeaderSubmitted,
		TypeLineSaved,
		TypeLineDeleted,
		TypePolicyReplaced,
		TypeComplianceChecked,
		TypeReportFinalized,
		TypeReportAbandoned:
		return true
	default:
		return false
	}
}
