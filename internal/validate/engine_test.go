package validate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/model"
)

func str(s string) *string { return &s }

func fixedEngine(d domain.Domain) *Engine {
	e := NewEngine(d)
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestValidateField_RealEstate(t *testing.T) {
	e := fixedEngine(domain.RealEstate)

	tests := []struct {
		field string
		value *string
		valid bool
		msg   string
	}{
		{"Purchase Price", str("$250,000"), true, "Valid"},
		{"Purchase Price", str("250000.00"), true, "Valid"},
		{"Purchase Price", str("about $250k"), false, "Purchase price must be in format: $XXX,XXX.XX"},
		{"Purchase Price", nil, false, "Value is empty"},
		{"Closing Date", str("01/15/2024"), true, "Valid date"},
		{"Closing Date", str("2024-01-15"), true, "Valid date"},
		{"Closing Date", str("January 15, 2024"), true, "Valid date"},
		{"Closing Date", str("15th of January"), false, "Invalid date format. Expected: MM/DD/YYYY, YYYY-MM-DD, Month DD, YYYY"},
		{"Closing Date", nil, false, "Date is empty"},
		{"Deed Book", str("Book 5432"), true, "Valid"},
		{"Deed Book", str("Vol 5432"), false, "Deed book must be formatted: Book XXXXX"},
		{"Page Number", str("234 of 400"), true, "Valid"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			res := e.ValidateField(tt.field, tt.value)
			assert.Equal(t, tt.valid, res.IsValid)
			assert.Equal(t, tt.msg, res.Message)
			assert.Equal(t, tt.field, res.RuleName)
			if tt.valid {
				assert.Equal(t, model.SeverityInfo, res.Severity)
			} else {
				assert.Equal(t, model.SeverityCritical, res.Severity)
			}
		})
	}
	assert.Len(t, e.AuditTrail(), len(tests))
}

func TestValidateField_NoRule(t *testing.T) {
	e := fixedEngine(domain.Legal)

	res := e.ValidateField("Governing Law", str("Tennessee"))
	assert.True(t, res.IsValid)
	assert.Equal(t, model.SeverityInfo, res.Severity)
	assert.Equal(t, "No specific validation rules", res.Message)
	assert.Equal(t, "none", res.RuleName)
	assert.Empty(t, e.AuditTrail())
}

func TestValidateField_KnowledgeBaseWarning(t *testing.T) {
	e := fixedEngine(domain.Insurance)

	res := e.ValidateField("coverage amount", str("full coverage"))
	assert.False(t, res.IsValid)
	assert.Equal(t, model.SeverityWarning, res.Severity)
	assert.Equal(t, "knowledge_base", res.RuleName)
	assert.Equal(t, "Value does not look like a Coverage Limit", res.Message)

	res = e.ValidateField("coverage amount", str("$500,000"))
	assert.True(t, res.IsValid)
}

func TestRangeRule(t *testing.T) {
	e := fixedEngine(domain.Medical)

	assert.True(t, e.ValidateField("Age", str(" 38 ")).IsValid)
	assert.Equal(t, "Value 151 exceeds maximum 150", e.ValidateField("Age", str("151")).Message)
	assert.Equal(t, "Value -1 is less than minimum 0", e.ValidateField("Age", str("-1")).Message)
	assert.Equal(t, "Value is not a number", e.ValidateField("Age", str("thirty")).Message)

	fin := fixedEngine(domain.Finance)
	assert.True(t, fin.ValidateField("Revenue", str("1e12")).IsValid)
}

func TestCrossFields_RealEstate(t *testing.T) {
	e := fixedEngine(domain.RealEstate)

	results := e.ValidateCrossFields(Form{
		"Grantor":        "John Smith",
		"Buyer Name":     "Jane Doe",
		"Purchase Price": "$250,000",
	})
	require.Len(t, results, 2)
	assert.Equal(t, "valid_parties", results[0].RuleName)
	assert.True(t, results[0].IsValid)
	assert.Equal(t, model.CrossFieldName, results[0].FieldName)
	assert.Equal(t, "Price amount is reasonable", results[1].Message)

	tests := []struct {
		price string
		valid bool
		msg   string
	}{
		{"", true, "Price not specified"},
		{"$500", false, "Purchase price seems unusually low (< $1,000)"},
		{"$20,000,000", false, "Purchase price seems unusually high (> $10,000,000)"},
		{"call us", false, "Could not parse purchase price"},
	}
	for _, tt := range tests {
		res := e.ValidateCrossFields(Form{"Purchase Price": tt.price})
		assert.False(t, res[0].IsValid)
		assert.Equal(t, tt.valid, res[1].IsValid, tt.price)
		assert.Equal(t, tt.msg, res[1].Message, tt.price)
	}
}

func TestCrossFields_Insurance(t *testing.T) {
	e := fixedEngine(domain.Insurance)

	res := e.ValidateCrossFields(Form{"Deductible": "$20,000", "Coverage Limit": "$10,000", "Premium": "$5,000"})
	require.Len(t, res, 2)
	assert.Equal(t, "Deductible cannot exceed coverage limit", res[0].Message)
	assert.Equal(t, "Premium seems high relative to coverage limit", res[1].Message)

	res = e.ValidateCrossFields(Form{"Deductible": "$1,000", "Coverage Limit": "$500,000", "Premium": "$1,250"})
	assert.True(t, res[0].IsValid)
	assert.True(t, res[1].IsValid)
}

func TestCrossFields_FinanceAndLegal(t *testing.T) {
	fin := fixedEngine(domain.Finance)
	res := fin.ValidateCrossFields(Form{"Revenue": "$1,000,000", "Expense": "$500,000", "Net Income": "$400,000"})
	require.Len(t, res, 1)
	assert.False(t, res[0].IsValid)
	assert.Equal(t, "Income calculation error: 1000000 - 500000 ≠ 400000", res[0].Message)

	res = fin.ValidateCrossFields(Form{"Revenue": "$1,000,000", "Expense": "$500,000", "Net Income": "$500,000"})
	assert.True(t, res[0].IsValid)

	legal := fixedEngine(domain.Legal)
	res = legal.ValidateCrossFields(Form{"Effective Date": "2025-01-01", "Termination Date": "2024-01-01"})
	assert.False(t, res[0].IsValid)
	res = legal.ValidateCrossFields(Form{"Effective Date": "2024-01-01"})
	assert.True(t, res[0].IsValid)
}

func TestCheckCompliance(t *testing.T) {
	e := fixedEngine(domain.RealEstate)

	results := e.CheckCompliance(Form{"Seller Name": "John Smith", "Purchase Price": "$250,000"})
	require.Contains(t, results, "transaction_completeness")
	findings := results["transaction_completeness"]
	require.Len(t, findings, 2)
	assert.Equal(t, "Buyer Name", findings[0].FieldName)
	assert.Equal(t, "Required field 'Buyer Name' is missing", findings[0].Message)
	assert.Equal(t, "Property Address", findings[1].FieldName)

	med := fixedEngine(domain.Medical)
	results = med.CheckCompliance(Form{"Patient ID": "ABC123", "Diagnosis": "I10"})
	assert.Empty(t, results["hipaa_compliance"])
	assert.Empty(t, results["clinical_completeness"])

	results = med.CheckCompliance(Form{})
	require.Len(t, results["hipaa_compliance"], 1)
	assert.Equal(t, model.SeverityWarning, results["hipaa_compliance"][0].Severity)
	assert.Equal(t, "(diagnosis)", results["clinical_completeness"][0].FieldName)

	fin := fixedEngine(domain.Finance)
	results = fin.CheckCompliance(Form{"Revenue": "100", "Expense": "200"})
	assert.Equal(t, "Expenses exceed revenue (loss situation)", results["accounting_compliance"][0].Message)
}

func TestGenericEngine(t *testing.T) {
	e := fixedEngine(domain.Generic)
	assert.True(t, e.ValidateField("Anything", nil).IsValid)
	assert.Empty(t, e.ValidateCrossFields(Form{}))
	assert.Empty(t, e.CheckCompliance(Form{}))
}

func TestAuditTrail_Concurrent(t *testing.T) {
	e := NewEngine(domain.RealEstate)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.ValidateField("Purchase Price", str("$1"))
		}()
	}
	wg.Wait()

	trail := e.AuditTrail()
	assert.Len(t, trail, 50)

	trail[0].Message = "mutated"
	assert.NotEqual(t, "mutated", e.AuditTrail()[0].Message)
}
