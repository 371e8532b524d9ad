package linker

// financialKeywords is the generic financial vocabulary used both for the
// common-word admission rule and for the financial-context scoring signal.
var financialKeywords = []string{
	"stock",
	"shares",
	"earnings",
	"trading",
	"market",
	"price",
	"dividend",
	"rally",
	"surge",
	"quarterly",
	"profit",
	"loss",
}

// symbolProfile holds hand-curated context vocabulary for one frequently
// confused symbol. Negative phrases mark non-financial usage of the
// colliding word, positive phrases mark the company itself, industry terms
// mark the sector.
type symbolProfile struct {
	Negative []string
	Positive []string
	Industry []string
}

// symbolProfiles covers the symbols that produce the bulk of observed false
// positives. The list grows one entry at a time as new collisions are
// curated; symbols without a profile fall back to the generic signals only.
var symbolProfiles = map[string]symbolProfile{
	"V": {
		Negative: []string{"visa application", "visa requirements", "travel visa", "student visa", "visa interview", "work visa"},
		Positive: []string{"visa inc"},
		Industry: []string{"payment network", "credit card", "debit card", "fintech"},
	},
	"MA": {
		Negative: []string{"ma and pa", "my ma", "boston ma", "ma degree"},
		Positive: []string{"mastercard"},
		Industry: []string{"payment network", "credit card", "fintech"},
	},
	"T": {
		Negative: []string{"t shirt", "mr t", "t mobile"},
		Positive: []string{"at&t"},
		Industry: []string{"telecom", "wireless", "5g", "broadband"},
	},
	"F": {
		Negative: []string{"press f", "f in chat", "grade f"},
		Positive: []string{"ford motor"},
		Industry: []string{"automaker", "pickup", "ev truck"},
	},
	"A": {
		Negative: []string{},
		Positive: []string{"agilent"},
		Industry: []string{"lab instruments", "life sciences"},
	},
	"GE": {
		Negative: []string{"ge aviation museum"},
		Positive: []string{"general electric"},
		Industry: []string{"aerospace", "turbines", "jet engine"},
	},
	"CAT": {
		Negative: []string{"my cat", "cat video", "cat food", "cats and dogs", "pet cat"},
		Positive: []string{"caterpillar"},
		Industry: []string{"construction equipment", "mining equipment", "excavator", "heavy machinery"},
	},
	"ALL": {
		Negative: []string{"all of", "all the", "all in all"},
		Positive: []string{"allstate"},
		Industry: []string{"insurance", "insurer", "premiums"},
	},
	"KEY": {
		Negative: []string{"key to", "key point", "car key"},
		Positive: []string{"keycorp", "keybank"},
		Industry: []string{"regional bank", "lending", "deposits"},
	},
	"NOW": {
		Negative: []string{"right now", "now that", "for now"},
		Positive: []string{"servicenow"},
		Industry: []string{"workflow software", "saas", "cloud platform"},
	},
	"COST": {
		Negative: []string{"the cost of", "at no cost", "cost me"},
		Positive: []string{"costco"},
		Industry: []string{"warehouse club", "membership", "retailer"},
	},
	"AAPL": {
		Negative: []string{},
		Positive: []string{"apple earnings", "apple inc", "iphone sales"},
		Industry: []string{"iphone", "app store", "macbook"},
	},
}

// profileFor returns the curated profile for a symbol, or a zero profile
// when none has been curated yet.
func profileFor(symbol string) symbolProfile {
	return symbolProfiles[symbol]
}
