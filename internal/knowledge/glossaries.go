package knowledge

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/fieldscout/internal/domain"
)

var builders = map[domain.Domain]func() *Base{
	domain.RealEstate: realEstate,
	domain.Medical:    medical,
	domain.Insurance:  insurance,
	domain.Finance:    finance,
	domain.Legal:      legal,
}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

func realEstate() *Base {
	return &Base{
		domain: domain.RealEstate,
		glossary: []TermMapping{
			{Canonical: "Property Address", Aliases: []string{"address", "property location", "real estate location", "premises"}, Category: "property", Abbreviations: []string{"addr"}, Description: "The physical location of the property", Examples: []string{"123 Main St, Nashville, TN 37201"}},
			{Canonical: "Deed Book", Aliases: []string{"book number", "deed reference", "recording book"}, Category: "recording", Abbreviations: []string{"book"}, Description: "Reference to deed recording book", Examples: []string{"Book 5432"}},
			{Canonical: "Page Number", Aliases: []string{"page", "recording page"}, Category: "recording", Abbreviations: []string{"pg", "p"}, Description: "Page number in deed recording", Examples: []string{"Page 234"}},
			{Canonical: "Legal Description", Aliases: []string{"legal description", "property description", "land description"}, Category: "property", Abbreviations: []string{"legal desc"}, Description: "Official legal description of the property", Examples: []string{"Lot 5, Block 2, Green Hills Subdivision"}},
			{Canonical: "Grantor", Aliases: []string{"seller", "conveyor", "donor"}, Category: "party", Abbreviations: []string{"gr"}, Description: "The party transferring the property", Examples: []string{"John Smith"}},
			{Canonical: "Grantee", Aliases: []string{"buyer", "purchaser", "recipient"}, Category: "party", Abbreviations: []string{"ee"}, Description: "The party receiving the property", Examples: []string{"Jane Doe"}},
			{Canonical: "Purchase Price", Aliases: []string{"sale price", "consideration", "price"}, Category: "financial", Abbreviations: []string{"price"}, Description: "Amount paid for the property", Examples: []string{"$250,000"}},
			{Canonical: "Closing Date", Aliases: []string{"settlement date", "closing", "date of closing"}, Category: "transaction", Abbreviations: []string{"close date"}, Description: "Date the transaction closes", Examples: []string{"January 15, 2024"}},
			{Canonical: "Title Company", Aliases: []string{"title agent", "closing agent", "title insurer"}, Category: "service", Abbreviations: []string{"title co"}, Description: "Entity providing title services", Examples: []string{"First National Title Company"}},
		},
		relationships: map[string][]string{
			"Deed Book":        {"Page Number", "Legal Description", "Recording Date"},
			"Grantor":          {"Grantee", "Property Address"},
			"Grantee":          {"Grantor", "Purchase Price"},
			"Purchase Price":   {"Financing", "Closing Date"},
			"Property Address": {"Legal Description", "Deed Book"},
		},
		fieldMappings: map[string]string{
			"seller name":         "Grantor",
			"buyer name":          "Grantee",
			"property location":   "Property Address",
			"recording reference": "Deed Book",
			"transaction amount":  "Purchase Price",
		},
		valueChecks: map[string]ValueCheck{
			"Purchase Price": func(v string) bool { return strings.HasPrefix(v, "$") || hasDigit(v) },
			"Closing Date": func(v string) bool {
				for _, m := range monthNames {
					if strings.Contains(v, m) {
						return true
					}
				}
				return strings.ContainsAny(v, "0123456789")
			},
			"Deed Book": func(v string) bool { return strings.Contains(strings.ToLower(v), "book") || hasDigit(v) },
		},
	}
}

func medical() *Base {
	return &Base{
		domain: domain.Medical,
		glossary: []TermMapping{
			{Canonical: "Patient Name", Aliases: []string{"patient", "name", "patient identifier"}, Category: "demographic", Abbreviations: []string{"pt name"}, Description: "Name of the patient", Examples: []string{"John Smith"}},
			{Canonical: "Date of Birth", Aliases: []string{"birth date", "DOB", "birthday"}, Category: "demographic", Abbreviations: []string{"DOB", "dob"}, Description: "Patient's date of birth", Examples: []string{"01/15/1980"}},
			{Canonical: "Diagnosis", Aliases: []string{"diagnosis code", "condition", "ICD code"}, Category: "clinical", Abbreviations: []string{"dx"}, Description: "Medical diagnosis code or description", Examples: []string{"I10 - Essential hypertension"}},
			{Canonical: "Medication", Aliases: []string{"drug", "prescription", "medicine"}, Category: "treatment", Abbreviations: []string{"med", "rx"}, Description: "Prescribed medication", Examples: []string{"Lisinopril 10mg"}},
			{Canonical: "Allergy", Aliases: []string{"allergies", "adverse reaction", "intolerance"}, Category: "safety", Abbreviations: []string{"allergy"}, Description: "Known allergies", Examples: []string{"Penicillin, Peanuts"}},
			{Canonical: "Provider", Aliases: []string{"physician", "doctor", "nurse"}, Category: "personnel", Abbreviations: []string{"MD", "RN"}, Description: "Healthcare provider name", Examples: []string{"Dr. Jane Smith, MD"}},
			{Canonical: "Insurance ID", Aliases: []string{"policy number", "member ID", "group number"}, Category: "insurance", Abbreviations: []string{"ID"}, Description: "Insurance policy or member ID", Examples: []string{"ABC123456"}},
		},
		abbreviations: map[string]string{
			"HTN":  "Hypertension",
			"DM":   "Diabetes Mellitus",
			"CHF":  "Congestive Heart Failure",
			"CAD":  "Coronary Artery Disease",
			"COPD": "Chronic Obstructive Pulmonary Disease",
			"MI":   "Myocardial Infarction",
			"CVA":  "Cerebrovascular Accident",
			"PE":   "Pulmonary Embolism",
			"DVT":  "Deep Vein Thrombosis",
			"UTI":  "Urinary Tract Infection",
		},
		relationships: map[string][]string{
			"Patient Name": {"Date of Birth", "Diagnosis", "Allergy"},
			"Diagnosis":    {"Medication", "Provider"},
			"Medication":   {"Allergy", "Dosage"},
			"Provider":     {"Insurance ID"},
		},
		valueChecks: map[string]ValueCheck{
			"Date of Birth": func(v string) bool { return strings.ContainsAny(v, "/-") },
			"Diagnosis":     func(v string) bool { return utf8.RuneCountInString(v) > 2 },
			"Medication":    func(v string) bool { return utf8.RuneCountInString(v) > 2 },
		},
	}
}

func insurance() *Base {
	return &Base{
		domain: domain.Insurance,
		glossary: []TermMapping{
			{Canonical: "Policy Number", Aliases: []string{"policy", "policy ID", "contract number"}, Category: "policy", Abbreviations: []string{"pol", "policy #"}, Description: "Unique insurance policy identifier", Examples: []string{"POL-2024-001234"}},
			{Canonical: "Policyholder", Aliases: []string{"insured", "primary insured", "named insured"}, Category: "party", Abbreviations: []string{"ph"}, Description: "Person or entity holding the policy", Examples: []string{"John Smith"}},
			{Canonical: "Beneficiary", Aliases: []string{"beneficiaries", "dependent", "named beneficiary"}, Category: "party", Abbreviations: []string{"ben"}, Description: "Designated recipient of policy benefits", Examples: []string{"Jane Smith"}},
			{Canonical: "Coverage Limit", Aliases: []string{"limit", "coverage amount", "benefit maximum"}, Category: "financial", Abbreviations: []string{"limit"}, Description: "Maximum amount insurer will pay", Examples: []string{"$500,000"}},
			{Canonical: "Premium", Aliases: []string{"payment", "monthly payment", "annual premium"}, Category: "financial", Abbreviations: []string{"prem"}, Description: "Amount paid for insurance", Examples: []string{"$1,250/month"}},
			{Canonical: "Deductible", Aliases: []string{"out of pocket", "deductable"}, Category: "financial", Abbreviations: []string{"ded"}, Description: "Amount insured pays before coverage starts", Examples: []string{"$1,000"}},
			{Canonical: "Effective Date", Aliases: []string{"start date", "policy start"}, Category: "temporal", Abbreviations: []string{"eff date"}, Description: "Date policy becomes active", Examples: []string{"January 1, 2024"}},
		},
		relationships: map[string][]string{
			"Policy Number":  {"Policyholder", "Beneficiary", "Effective Date"},
			"Policyholder":   {"Beneficiary", "Coverage Limit"},
			"Coverage Limit": {"Premium", "Deductible"},
		},
		valueChecks: map[string]ValueCheck{
			"Policy Number":  func(v string) bool { return utf8.RuneCountInString(v) > 3 },
			"Coverage Limit": hasDigit,
			"Premium":        hasDigit,
		},
	}
}

func finance() *Base {
	return &Base{
		domain: domain.Finance,
		glossary: []TermMapping{
			{Canonical: "Revenue", Aliases: []string{"sales", "income", "proceeds"}, Category: "financial", Abbreviations: []string{"rev"}, Description: "Total income from business operations", Examples: []string{"$1,000,000"}},
			{Canonical: "Expense", Aliases: []string{"cost", "expenditure", "outflow"}, Category: "financial", Abbreviations: []string{"exp"}, Description: "Costs of doing business", Examples: []string{"$500,000"}},
			{Canonical: "Net Income", Aliases: []string{"profit", "earnings", "bottom line"}, Category: "financial", Abbreviations: []string{"NI"}, Description: "Revenue minus expenses", Examples: []string{"$500,000"}},
			{Canonical: "Account Number", Aliases: []string{"GL account", "account code"}, Category: "accounting", Abbreviations: []string{"acct"}, Description: "General ledger account identifier", Examples: []string{"4000-001"}},
			{Canonical: "Tax Amount", Aliases: []string{"taxes", "tax liability"}, Category: "tax", Abbreviations: []string{"tax"}, Description: "Tax liability", Examples: []string{"$100,000"}},
		},
		relationships: map[string][]string{
			"Revenue":    {"Expense", "Net Income"},
			"Expense":    {"Net Income", "Account Number"},
			"Net Income": {"Tax Amount"},
		},
	}
}

func legal() *Base {
	return &Base{
		domain: domain.Legal,
		glossary: []TermMapping{
			{Canonical: "Party", Aliases: []string{"parties", "contracting party", "entity"}, Category: "legal", Abbreviations: []string{"party"}, Description: "Entity entering into contract", Examples: []string{"John Smith"}},
			{Canonical: "Consideration", Aliases: []string{"payment", "benefit", "exchange"}, Category: "legal", Abbreviations: []string{"consid"}, Description: "Something of value exchanged", Examples: []string{"$10,000"}},
			{Canonical: "Effective Date", Aliases: []string{"start date", "commencement date"}, Category: "temporal", Abbreviations: []string{"eff date"}, Description: "Date contract becomes effective", Examples: []string{"January 1, 2024"}},
			{Canonical: "Termination Clause", Aliases: []string{"termination", "end date", "expiration"}, Category: "legal", Abbreviations: []string{"term"}, Description: "Conditions for ending the contract", Examples: []string{"Either party may terminate with 30 days notice"}},
			{Canonical: "Liability", Aliases: []string{"indemnification", "responsibility", "obligation"}, Category: "legal", Abbreviations: []string{"liab"}, Description: "Legal obligation or responsibility", Examples: []string{"Each party is liable for their own negligence"}},
		},
		relationships: map[string][]string{
			"Party":         {"Consideration", "Effective Date", "Liability"},
			"Consideration": {"Termination Clause"},
		},
	}
}
