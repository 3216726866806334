package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/expense-wizard/internal/domain/entity"
)

const (
	// CompliantToken is the exact reply meaning no violation was found
	CompliantToken = "COMPLIANT"

	// UnverifiedWarning replaces an empty compliance reply
	UnverifiedWarning = "Unable to verify compliance."
)

var (
	// ErrNoJSON is returned when a reply contains no JSON object
	ErrNoJSON = errors.New("no JSON object found in reply")

	// ErrEmptyReply is returned when the model answers with nothing
	ErrEmptyReply = errors.New("empty model reply")
)

var dateLayouts = []string{
	entity.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

type receiptReply struct {
	Date           string      `json:"date"`
	Amount         json.Number `json:"amount"`
	ExpenseItem    string      `json:"expenseItem"`
	Memo           string      `json:"memo"`
	BusinessReason string      `json:"businessReason"`
}

// ParseReceiptReply turns a model reply into extracted line fields.
// Fields the model could not read come back empty.
func ParseReceiptReply(text string) (*entity.ExtractedLine, error) {
	raw := ExtractJSON(StripFences(text))
	if raw == "" {
		return nil, ErrNoJSON
	}

	var reply receiptReply
	if err := unmarshalLoose(raw, &reply); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt reply: %w", err)
	}

	out := &entity.ExtractedLine{
		Date:           NormalizeDate(reply.Date),
		Amount:         parseAmount(string(reply.Amount)),
		Memo:           strings.TrimSpace(reply.Memo),
		BusinessReason: strings.TrimSpace(reply.BusinessReason),
	}
	if c := strings.TrimSpace(reply.ExpenseItem); c != "" {
		out.ExpenseItem = c
	}
	return out, nil
}

// unmarshalLoose accepts amount as a JSON number or a quoted string
func unmarshalLoose(raw string, reply *receiptReply) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(reply); err == nil {
		return nil
	}

	var alt struct {
		receiptReply
		Amount string `json:"amount"`
	}
	if err := json.Unmarshal([]byte(raw), &alt); err != nil {
		return err
	}
	*reply = alt.receiptReply
	reply.Amount = json.Number(alt.Amount)
	return nil
}

func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// NormalizeDate rewrites common date spellings as YYYY-MM-DD. Unreadable
// dates become empty so they never overwrite a typed value.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format(entity.DateLayout)
		}
	}
	return ""
}

// ParseComplianceVerdict maps a compliance reply to a warning. It returns
// ok=true with an empty warning when the reply is exactly COMPLIANT.
func ParseComplianceVerdict(text string) (warning string, ok bool) {
	text = strings.TrimSpace(StripFences(text))
	switch {
	case text == CompliantToken:
		return "", true
	case text == "":
		return UnverifiedWarning, false
	default:
		return text, false
	}
}

// StripFences removes markdown code fences around a reply
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ExtractJSON returns the first balanced JSON object in content, or ""
func ExtractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
