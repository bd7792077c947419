package domain

var profiles = map[Domain]Profile{
	RealEstate: {
		Domain: RealEstate,
		Categories: []KeywordGroup{
			{"property", []string{"address", "location", "property", "premises", "land", "real estate"}},
			{"party", []string{"seller", "buyer", "grantor", "grantee", "owner", "name"}},
			{"financial", []string{"price", "consideration", "amount", "cost", "payment"}},
			{"recording", []string{"deed", "book", "page", "reference", "instrument", "number"}},
			{"temporal", []string{"date", "closing", "settlement", "commencement"}},
		},
		Rules: []KeywordGroup{
			{"property", []string{"deed", "property description", "address"}},
			{"seller", []string{"seller name", "grantor", "owner"}},
			{"deed reference", []string{"instrument number", "book", "page"}},
		},
	},
	Medical: {
		Domain: Medical,
		Categories: []KeywordGroup{
			{"demographic", []string{"name", "patient", "age", "birth", "dob", "id"}},
			{"clinical", []string{"diagnosis", "condition", "disease", "code", "icd"}},
			{"treatment", []string{"medication", "drug", "prescription", "rx", "therapy"}},
			{"safety", []string{"allergy", "adverse", "reaction", "intolerance", "contraindication"}},
			{"vital", []string{"blood pressure", "heart rate", "temperature", "weight", "height"}},
		},
		Rules: []KeywordGroup{
			{"patient name", []string{"patient", "name"}},
			{"age", []string{"age", "dob", "birth"}},
			{"diagnosis", []string{"diagnosis", "condition", "code"}},
			{"medications", []string{"medication", "drug", "prescription", "rx"}},
		},
	},
	Insurance: {
		Domain: Insurance,
		Categories: []KeywordGroup{
			{"policy", []string{"policy", "number", "id", "contract"}},
			{"party", []string{"policyholder", "beneficiary", "insured", "recipient"}},
			{"coverage", []string{"limit", "coverage", "benefit", "amount"}},
			{"financial", []string{"premium", "deductible", "payment", "rate"}},
		},
		Rules: []KeywordGroup{
			{"policy number", []string{"policy", "number", "id"}},
			{"beneficiary", []string{"beneficiary", "dependent", "name"}},
			{"coverage", []string{"coverage", "limit", "amount", "benefit"}},
		},
	},
	Finance: {
		Domain: Finance,
		Categories: []KeywordGroup{
			{"financial", []string{"revenue", "expense", "income", "cost", "profit"}},
			{"accounting", []string{"account", "ledger", "journal", "entry", "code"}},
			{"tax", []string{"tax", "liability", "deduction", "rate", "filing"}},
		},
	},
	Legal: {
		Domain: Legal,
		Categories: []KeywordGroup{
			{"party", []string{"party", "parties", "entity", "person", "organization"}},
			{"obligation", []string{"obligation", "liability", "responsibility", "duty"}},
			{"termination", []string{"termination", "end date", "expiration", "renewal"}},
		},
	},
}
