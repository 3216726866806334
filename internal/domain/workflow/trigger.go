package workflow

// Trigger is an event that can move the wizard between steps
type Trigger string

const (
	TriggerSubmitHeader Trigger = "SUBMIT_HEADER"
	TriggerFinalize     Trigger = "FINALIZE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
