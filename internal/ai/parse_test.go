package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReceiptReply(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		amount float64
		date   string
		item   string
	}{
		{
			name:   "plain json",
			reply:  `{"date":"2024-03-01","amount":42.5,"expenseItem":"Meals","memo":"Cafe","businessReason":"Client Meeting"}`,
			amount: 42.5, date: "2024-03-01", item: "Meals",
		},
		{
			name:   "fenced json",
			reply:  "```json\n{\"date\":\"2024/03/01\",\"amount\":\"19.99\",\"expenseItem\":\"Travel\"}\n```",
			amount: 19.99, date: "2024-03-01", item: "Travel",
		},
		{
			name:   "currency string amount",
			reply:  `Here you go: {"amount":"$1,204.10","date":"03/15/2024"} thanks`,
			amount: 1204.10, date: "2024-03-15",
		},
		{
			name:  "unreadable date is dropped",
			reply: `{"date":"last tuesday","amount":0}`,
			date:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReceiptReply(tt.reply)
			require.NoError(t, err)
			assert.InDelta(t, tt.amount, got.Amount, 1e-9)
			assert.Equal(t, tt.date, got.Date)
			assert.Equal(t, tt.item, got.ExpenseItem)
		})
	}
}

func TestParseReceiptReply_NoJSON(t *testing.T) {
	_, err := ParseReceiptReply("I could not read this image.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseReceiptReply(`{"amount": [1, 2]}`)
	assert.Error(t, err)
}

func TestParseComplianceVerdict(t *testing.T) {
	tests := []struct {
		reply   string
		warning string
		ok      bool
	}{
		{"COMPLIANT", "", true},
		{"  COMPLIANT\n", "", true},
		{"", UnverifiedWarning, false},
		{"Attendee list required for meals over $100.", "Attendee list required for meals over $100.", false},
		{"compliant", "compliant", false},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			warning, ok := ParseComplianceVerdict(tt.reply)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.warning, warning)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":{"b":"}"}}`, ExtractJSON(`prefix {"a":{"b":"}"}} suffix {"c":1}`))
	assert.Equal(t, `{"q":"say \"hi\""}`, ExtractJSON(`{"q":"say \"hi\""}`))
	assert.Empty(t, ExtractJSON(`{"open": true`))
	assert.Empty(t, ExtractJSON("nothing"))
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-01-05", NormalizeDate("Jan 5, 2024"))
	assert.Equal(t, "2024-12-31", NormalizeDate("31-12-2024"))
	assert.Empty(t, NormalizeDate(""))
}
