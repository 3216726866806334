// Package ai builds model prompts and interprets model replies. It is shared
// by every gateway adapter so providers only differ in transport.
package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/garyjia/expense-wizard/internal/domain/entity"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompt is one system/user prompt pair with its sampling parameters
type Prompt struct {
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`

	tmpl *template.Template
}

// PromptSet holds every prompt the gateways send
type PromptSet struct {
	Receipt      Prompt `yaml:"receipt"`
	Policy       Prompt `yaml:"policy"`
	Compliance   Prompt `yaml:"compliance"`
	DefaultRules string `yaml:"default_rules"`

	company string
}

// ComplianceInput is the data rendered into the compliance prompt
type ComplianceInput struct {
	Line         *entity.ExpenseLineItem
	CustomRules  string
	DefaultRules string
	Company      string
}

var funcs = template.FuncMap{"join": strings.Join}

// LoadPrompts parses the embedded prompt set. A non-empty overridePath
// replaces it with the file's content; keys missing from the file keep
// their embedded values.
func LoadPrompts(overridePath, company string) (*PromptSet, error) {
	var set PromptSet
	if err := yaml.Unmarshal(defaultPrompts, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded prompts: %w", err)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompts file: %w", err)
		}
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
		}
	}

	if company == "" {
		company = entity.DefaultCompany
	}
	set.company = company

	for name, p := range map[string]*Prompt{"receipt": &set.Receipt, "policy": &set.Policy, "compliance": &set.Compliance} {
		tmpl, err := template.New(name).Funcs(funcs).Parse(p.UserTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		p.tmpl = tmpl
	}
	return &set, nil
}

// MustLoadDefaultPrompts returns the embedded prompt set or panics
func MustLoadDefaultPrompts() *PromptSet {
	set, err := LoadPrompts("", "")
	if err != nil {
		panic(err)
	}
	return set
}

// ReceiptUser renders the receipt extraction instruction
func (s *PromptSet) ReceiptUser() (string, error) {
	return s.Receipt.render(struct{ Categories []string }{entity.Categories()})
}

// PolicyUser renders the policy extraction instruction. text is the policy
// body for plain-text uploads and empty when the document is sent as an attachment.
func (s *PromptSet) PolicyUser(text string) (string, error) {
	return s.Policy.render(struct{ Text string }{text})
}

// ComplianceUser renders the compliance question for a line. Empty
// customRules selects the standard rules.
func (s *PromptSet) ComplianceUser(line *entity.ExpenseLineItem, customRules string) (string, error) {
	return s.Compliance.render(ComplianceInput{
		Line:         line,
		CustomRules:  strings.TrimSpace(customRules),
		DefaultRules: strings.TrimSpace(s.DefaultRules),
		Company:      strings.ToUpper(s.company),
	})
}

func (p *Prompt) render(data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
