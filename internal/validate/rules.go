package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FieldRule checks one field value. A nil value means the field is empty.
type FieldRule interface {
	Check(value *string) (bool, string)
}

// RegexRule requires the value to match a pattern anchored at its start
type RegexRule struct {
	Pattern *regexp.Regexp
	Message string
}

// NewRegexRule compiles a pattern rule. Patterns are package constants, so a
// bad pattern panics at init.
func NewRegexRule(pattern, message string) RegexRule {
	return RegexRule{Pattern: regexp.MustCompile(pattern), Message: message}
}

// Check implements FieldRule
func (r RegexRule) Check(value *string) (bool, string) {
	if value == nil {
		return false, "Value is empty"
	}
	if loc := r.Pattern.FindStringIndex(*value); loc != nil && loc[0] == 0 {
		return true, "Valid"
	}
	return false, r.Message
}

// DateRule accepts any of a list of time layouts
type DateRule struct {
	Layouts []string
	Formats []string // Human-readable layouts for messages
}

// Check implements FieldRule
func (r DateRule) Check(value *string) (bool, string) {
	if value == nil {
		return false, "Date is empty"
	}
	for _, layout := range r.Layouts {
		if _, err := time.Parse(layout, *value); err == nil {
			return true, "Valid date"
		}
	}
	return false, "Invalid date format. Expected: " + strings.Join(r.Formats, ", ")
}

// RangeRule requires a number within optional bounds
type RangeRule struct {
	Min *float64
	Max *float64
}

// Check implements FieldRule
func (r RangeRule) Check(value *string) (bool, string) {
	if value == nil {
		return false, "Value is empty"
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(*value), 64)
	if err != nil {
		return false, "Value is not a number"
	}
	if r.Min != nil && num < *r.Min {
		return false, fmt.Sprintf("Value %s is less than minimum %s", formatNum(num), formatNum(*r.Min))
	}
	if r.Max != nil && num > *r.Max {
		return false, fmt.Sprintf("Value %s exceeds maximum %s", formatNum(num), formatNum(*r.Max))
	}
	return true, "Valid"
}

func between(min, max float64) RangeRule {
	return RangeRule{Min: &min, Max: &max}
}

func atLeast(min float64) RangeRule {
	return RangeRule{Min: &min}
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// parseAmount strips everything but digits and dots ("$1,250.00" -> 1250).
// Missing, empty, unparseable and zero amounts report false.
func parseAmount(form Form, field string) (float64, bool) {
	raw := form[field]
	if raw == "" {
		return 0, false
	}
	f, err := parseNumber(raw)
	if err != nil || f == 0 {
		return 0, false
	}
	return f, true
}

func parseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(nonNumeric.ReplaceAllString(raw, ""), 64)
}
