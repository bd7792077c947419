package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Severity grades a validation or compliance finding
type Severity int

const (
	SeverityCritical Severity = 1 // Must pass
	SeverityWarning  Severity = 2 // Should pass
	SeverityInfo     Severity = 3 // For information
	SeverityOptional Severity = 4 // Nice to have
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityOptional:
		return "optional"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity by name in JSON and YAML
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "critical":
		*s = SeverityCritical
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	case "optional":
		*s = SeverityOptional
	default:
		return eris.Errorf("unknown severity %q", text)
	}
	return nil
}

// ValidationResult is the outcome of one validation check
type ValidationResult struct {
	FieldName string    `json:"field_name"`
	IsValid   bool      `json:"is_valid"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	RuleName  string    `json:"rule_name"`
	Timestamp time.Time `json:"timestamp"`
}

// CrossFieldName labels results that span several fields
const CrossFieldName = "(cross-field)"
