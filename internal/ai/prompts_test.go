package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-wizard/internal/domain/entity"
)

func TestLoadPrompts_Embedded(t *testing.T) {
	set, err := LoadPrompts("", "")
	require.NoError(t, err)

	receipt, err := set.ReceiptUser()
	require.NoError(t, err)
	for _, field := range []string{"date", "amount", "expenseItem", "memo", "businessReason"} {
		assert.Contains(t, receipt, "- "+field+":")
	}
	assert.Contains(t, receipt, "Meals, Travel, Lodging, Mileage, Office Supplies, Entertainment, Medical, Other")
	assert.Contains(t, set.DefaultRules, "$0.545/mile")
}

func TestComplianceUser(t *testing.T) {
	set := MustLoadDefaultPrompts()
	line := &entity.ExpenseLineItem{ExpenseItem: entity.CategoryMeals, Amount: 120, Memo: "Dinner", ReceiptAttached: true}

	t.Run("standard rules", func(t *testing.T) {
		prompt, err := set.ComplianceUser(line, "")
		require.NoError(t, err)
		assert.Contains(t, prompt, "STANDARD AVO.AI POLICY:")
		assert.Contains(t, prompt, "Expenses over $75 require a receipt.")
		assert.Contains(t, prompt, "Amount: $120.00")
		assert.Contains(t, prompt, "Receipt Attached: Yes")
		assert.Contains(t, prompt, `return exactly "COMPLIANT"`)
	})

	t.Run("custom rules replace the standard ones", func(t *testing.T) {
		prompt, err := set.ComplianceUser(line, "1. No dinners.")
		require.NoError(t, err)
		assert.Contains(t, prompt, "CUSTOM POLICY RULES UPLOADED BY USER:\n1. No dinners.")
		assert.NotContains(t, prompt, "STANDARD")
	})
}

func TestPolicyUser(t *testing.T) {
	set := MustLoadDefaultPrompts()

	attached, err := set.PolicyUser("")
	require.NoError(t, err)
	assert.Contains(t, attached, "numbered list")
	assert.NotContains(t, attached, "POLICY DOCUMENT:")

	inline, err := set.PolicyUser("Hotels max $200/night")
	require.NoError(t, err)
	assert.Contains(t, inline, "POLICY DOCUMENT:\nHotels max $200/night")
}

func TestLoadPrompts_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_rules: \"1. Nothing over $10.\"\n"), 0o600))

	set, err := LoadPrompts(path, "Acme")
	require.NoError(t, err)

	prompt, err := set.ComplianceUser(&entity.ExpenseLineItem{ExpenseItem: entity.CategoryOther, Amount: 5}, "")
	require.NoError(t, err)
	assert.Contains(t, prompt, "STANDARD ACME POLICY:\n1. Nothing over $10.")
	assert.NotEmpty(t, set.Receipt.UserTemplate, "keys absent from the override keep embedded values")
}

func TestLoadPrompts_Errors(t *testing.T) {
	_, err := LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("receipt:\n  user_template: \"{{.Nope\"\n"), 0o600))
	_, err = LoadPrompts(path, "")
	assert.Error(t, err)
}
