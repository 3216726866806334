package workflow

// State is a step of the report wizard
type State string

const (
	// StateHeader collects the report-level fields
	StateHeader State = "HEADER"
	// StateLines manages the line-item sequence
	StateLines State = "LINES"
	// StateFinalized is reached once the report has been submitted
	StateFinalized State = "FINALIZED"
)

var validStates = map[State]bool{
	StateHeader:    true,
	StateLines:     true,
	StateFinalized: true,
}

var terminalStates = map[State]bool{
	StateFinalized: true,
}

// IsTerminal returns true if no further transitions leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known wizard step
func (s State) IsValid() bool {
	return validStates[s]
}
