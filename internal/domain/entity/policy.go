package entity

// PolicySource identifies where the active rule set came from
type PolicySource string

const (
	PolicySourceDefault PolicySource = "default"
	PolicySourceCustom  PolicySource = "custom"
)

// DefaultPolicyName is shown when no document has been uploaded
const DefaultPolicyName = "Standard Avo.ai"

// Policy is the rule set compliance checks run against. Rules is empty for
// the default policy; the default rule text lives with the prompts.
type Policy struct {
	Source  PolicySource `json:"source"`
	Name    string       `json:"name"`
	Rules   string       `json:"rules,omitempty"`
	Version int          `json:"version"`
}

// DefaultPolicy returns the implicit standard policy at version 1
func DefaultPolicy() Policy {
	return Policy{Source: PolicySourceDefault, Name: DefaultPolicyName, Version: 1}
}

// IsCustom reports whether a user-supplied rule document is active
func (p Policy) IsCustom() bool {
	return p.Source == PolicySourceCustom
}

// Replace returns the next policy version carrying custom rules
func (p Policy) Replace(name, rules string) Policy {
	return Policy{Source: PolicySourceCustom, Name: name, Rules: rules, Version: p.Version + 1}
}

// Reset returns the next policy version reverting to the default rules
func (p Policy) Reset() Policy {
	next := DefaultPolicy()
	next.Version = p.Version + 1
	return next
}
