package validate

import (
	"fmt"
	"math"
	"time"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/model"
)

const (
	slashDate = "1/2/2006"
	isoDate   = "2006-1-2"
	longDate  = "January 2, 2006"
)

// TableFor returns the validation table of a domain; unknown domains get an
// empty table
func TableFor(d domain.Domain) Table {
	switch d {
	case domain.RealEstate:
		return realEstateTable()
	case domain.Medical:
		return medicalTable()
	case domain.Insurance:
		return insuranceTable()
	case domain.Finance:
		return financeTable()
	case domain.Legal:
		return legalTable()
	default:
		return Table{Fields: map[string]FieldRule{}}
	}
}

func realEstateTable() Table {
	return Table{
		Fields: map[string]FieldRule{
			"Purchase Price": NewRegexRule(`^\$?\d+(?:,\d{3})*(?:\.\d{2})?$`, "Purchase price must be in format: $XXX,XXX.XX"),
			"Closing Date": DateRule{
				Layouts: []string{slashDate, isoDate, longDate},
				Formats: []string{"MM/DD/YYYY", "YYYY-MM-DD", "Month DD, YYYY"},
			},
			"Deed Book":   NewRegexRule(`^[Bb]ook\s*\d+`, "Deed book must be formatted: Book XXXXX"),
			"Page Number": NewRegexRule(`^\d+`, "Page number must be numeric"),
		},
		CrossField: []CrossFieldRule{
			{Name: "valid_parties", Check: validParties},
			{Name: "price_amount", Check: priceAmount},
		},
		Compliance: []ComplianceRule{
			{Name: "transaction_completeness", Check: requireFields(
				"transaction_completeness", model.SeverityCritical,
				"Required field '%s' is missing",
				"Seller Name", "Buyer Name", "Property Address", "Purchase Price",
			)},
		},
	}
}

func validParties(form Form) (bool, string) {
	seller := firstOf(form, "Seller Name", "Grantor")
	buyer := firstOf(form, "Buyer Name", "Grantee")
	if seller != "" && buyer != "" {
		return true, "Both parties identified"
	}
	return false, "Both seller and buyer must be specified"
}

func priceAmount(form Form) (bool, string) {
	if form["Purchase Price"] == "" {
		return true, "Price not specified"
	}
	price, err := parseNumber(form["Purchase Price"])
	if err != nil {
		return false, "Could not parse purchase price"
	}
	switch {
	case price < 1000:
		return false, "Purchase price seems unusually low (< $1,000)"
	case price > 10_000_000:
		return false, "Purchase price seems unusually high (> $10,000,000)"
	}
	return true, "Price amount is reasonable"
}

func medicalTable() Table {
	return Table{
		Fields: map[string]FieldRule{
			"Date of Birth": DateRule{
				Layouts: []string{slashDate, isoDate},
				Formats: []string{"MM/DD/YYYY", "YYYY-MM-DD"},
			},
			"Patient ID": NewRegexRule(`^[A-Z0-9]{6,12}$`, "Patient ID must be 6-12 alphanumeric characters"),
			"Age":        between(0, 150),
		},
		CrossField: []CrossFieldRule{
			// Age is not derived from the date of birth yet
			{Name: "consistent_age", Check: func(Form) (bool, string) { return true, "Age data present" }},
		},
		Compliance: []ComplianceRule{
			{Name: "hipaa_compliance", Check: func(form Form, now time.Time) []model.ValidationResult {
				if form["Patient ID"] != "" {
					return nil
				}
				return []model.ValidationResult{finding("Patient ID", model.SeverityWarning,
					"HIPAA: Patient must be de-identified or have proper access controls", "hipaa_compliance", now)}
			}},
			{Name: "clinical_completeness", Check: func(form Form, now time.Time) []model.ValidationResult {
				if form["Diagnosis"] != "" || form["Reason for Visit"] != "" {
					return nil
				}
				return []model.ValidationResult{finding("(diagnosis)", model.SeverityWarning,
					"Clinical record should include diagnosis or reason for visit", "clinical_completeness", now)}
			}},
		},
	}
}

func insuranceTable() Table {
	return Table{
		Fields: map[string]FieldRule{
			"Policy Number":  NewRegexRule(`^[A-Z0-9]{6,20}$`, "Policy number must be 6-20 alphanumeric characters"),
			"Premium":        between(0, 100_000),
			"Deductible":     between(0, 10_000),
			"Coverage Limit": between(0, 5_000_000),
		},
		CrossField: []CrossFieldRule{
			{Name: "coverage_consistency", Check: func(form Form) (bool, string) {
				deductible, okD := parseAmount(form, "Deductible")
				limit, okL := parseAmount(form, "Coverage Limit")
				if okD && okL && deductible > limit {
					return false, "Deductible cannot exceed coverage limit"
				}
				return true, "Coverage values are consistent"
			}},
			{Name: "premium_relationship", Check: func(form Form) (bool, string) {
				premium, okP := parseAmount(form, "Premium")
				limit, okL := parseAmount(form, "Coverage Limit")
				if okP && okL && premium/limit > 0.1 {
					return false, "Premium seems high relative to coverage limit"
				}
				return true, "Premium relationship OK"
			}},
		},
		Compliance: []ComplianceRule{
			{Name: "policy_validity", Check: requireFields(
				"policy_validity", model.SeverityCritical,
				"Required field '%s' missing for valid policy",
				"Policy Number", "Policyholder",
			)},
		},
	}
}

func financeTable() Table {
	return Table{
		Fields: map[string]FieldRule{
			"Revenue":        atLeast(0),
			"Expense":        atLeast(0),
			"Account Number": NewRegexRule(`^\d{4}-\d{3}$`, "Account number format: XXXX-XXX"),
		},
		CrossField: []CrossFieldRule{
			{Name: "income_calculation", Check: func(form Form) (bool, string) {
				revenue, okR := parseAmount(form, "Revenue")
				expense, okE := parseAmount(form, "Expense")
				net, okN := parseAmount(form, "Net Income")
				if okR && okE && okN && math.Abs(net-(revenue-expense)) > 0.01 {
					return false, fmt.Sprintf("Income calculation error: %s - %s ≠ %s",
						formatNum(revenue), formatNum(expense), formatNum(net))
				}
				return true, "Income calculations correct"
			}},
		},
		Compliance: []ComplianceRule{
			{Name: "accounting_compliance", Check: func(form Form, now time.Time) []model.ValidationResult {
				revenue, okR := parseAmount(form, "Revenue")
				expense, okE := parseAmount(form, "Expense")
				if okR && okE && revenue < expense {
					return []model.ValidationResult{finding("Revenue/Expense", model.SeverityWarning,
						"Expenses exceed revenue (loss situation)", "accounting_compliance", now)}
				}
				return nil
			}},
		},
	}
}

func legalTable() Table {
	return Table{
		Fields: map[string]FieldRule{
			"Effective Date": DateRule{
				Layouts: []string{slashDate, isoDate},
				Formats: []string{"MM/DD/YYYY", "YYYY-MM-DD"},
			},
		},
		CrossField: []CrossFieldRule{
			{Name: "date_sequence", Check: func(form Form) (bool, string) {
				effective, termination := form["Effective Date"], form["Termination Date"]
				// Lexical order, which holds for YYYY-MM-DD
				if effective != "" && termination != "" && effective > termination {
					return false, "Effective date must be before termination date"
				}
				return true, "Date sequence valid"
			}},
		},
		Compliance: []ComplianceRule{
			{Name: "contract_completeness", Check: requireFields(
				"contract_completeness", model.SeverityCritical,
				"Contract must include: %s",
				"Party", "Effective Date", "Consideration",
			)},
		},
	}
}

// requireFields reports one finding per missing or empty field
func requireFields(rule string, severity model.Severity, format string, fields ...string) func(Form, time.Time) []model.ValidationResult {
	return func(form Form, now time.Time) []model.ValidationResult {
		var out []model.ValidationResult
		for _, f := range fields {
			if form[f] == "" {
				out = append(out, finding(f, severity, fmt.Sprintf(format, f), rule, now))
			}
		}
		return out
	}
}

func finding(field string, severity model.Severity, msg, rule string, now time.Time) model.ValidationResult {
	return model.ValidationResult{
		FieldName: field,
		IsValid:   false,
		Severity:  severity,
		Message:   msg,
		RuleName:  rule,
		Timestamp: now,
	}
}

func firstOf(form Form, keys ...string) string {
	for _, k := range keys {
		if v := form[k]; v != "" {
			return v
		}
	}
	return ""
}
