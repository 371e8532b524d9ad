package linker

import (
	"strings"

	"github.com/sells-group/ticker-linker/internal/model"
)

// alwaysExcludedSymbols are never admitted without a cashtag, no matter what
// the rest of the document looks like. "A" and "I" appear in virtually every
// English sentence.
var alwaysExcludedSymbols = map[string]struct{}{
	"A": {},
	"I": {},
}

// commonWordSymbols are real tickers that read as ordinary English words.
// Hand-curated from observed false positives; extend as new collisions are
// found.
var commonWordSymbols = map[string]struct{}{
	"ALL":  {},
	"ANY":  {},
	"ARE":  {},
	"BEST": {},
	"BIG":  {},
	"CAN":  {},
	"CAR":  {},
	"CAT":  {},
	"COST": {},
	"EAT":  {},
	"FAST": {},
	"FOR":  {},
	"FUN":  {},
	"GO":   {},
	"GOLD": {},
	"GOOD": {},
	"HAS":  {},
	"HE":   {},
	"IT":   {},
	"KEY":  {},
	"LOVE": {},
	"LOW":  {},
	"MAIN": {},
	"MAN":  {},
	"NEW":  {},
	"NICE": {},
	"NOW":  {},
	"ON":   {},
	"ONE":  {},
	"OPEN": {},
	"OUT":  {},
	"PLAY": {},
	"REAL": {},
	"RIDE": {},
	"ROAD": {},
	"RUN":  {},
	"SAFE": {},
	"SEE":  {},
	"SO":   {},
	"STAY": {},
	"TECH": {},
	"TELL": {},
	"TWO":  {},
	"VERY": {},
	"WELL": {},
	"YOU":  {},
}

// acronymSymbols collide with internet slang, titles, and abbreviations
// rather than prose words. Without a cashtag, "DD" is due diligence and
// "PM" is a private message (or an afternoon), not a ticker.
var acronymSymbols = map[string]struct{}{
	"AI":   {},
	"AM":   {},
	"ATH":  {},
	"CEO":  {},
	"CFO":  {},
	"COO":  {},
	"CTO":  {},
	"DD":   {},
	"DM":   {},
	"EDIT": {},
	"EOD":  {},
	"ETF":  {},
	"EV":   {},
	"FD":   {},
	"FOMO": {},
	"GDP":  {},
	"IMO":  {},
	"IPO":  {},
	"IRA":  {},
	"IRS":  {},
	"LOL":  {},
	"OTM":  {},
	"PM":   {},
	"PSA":  {},
	"SEC":  {},
	"TA":   {},
	"TLDR": {},
	"USA":  {},
	"USD":  {},
	"WSB":  {},
	"YOLO": {},
	"YTD":  {},
}

// ClassifyTier computes a symbol's ambiguity tier. Pure function of the
// symbol text: length plus word-list membership, never document context.
// Applied once at index-build time.
func ClassifyTier(symbol string) model.AmbiguityTier {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	base := sym
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}

	if _, ok := alwaysExcludedSymbols[base]; ok {
		return model.TierAlwaysExcluded
	}
	if len(base) == 1 {
		return model.TierSingleLetter
	}
	if _, ok := commonWordSymbols[base]; ok {
		return model.TierCommonWord
	}
	if _, ok := acronymSymbols[base]; ok {
		return model.TierAcronym
	}
	return model.TierUnambiguous
}

// AdmissionPolicy decides whether a bare-symbol candidate survives its
// tier's admission rule. Cashtag candidates never reach the policy; a
// $-prefixed token is the strongest possible signal and bypasses it.
//
// A single policy value parametrized by tier replaces what used to be two
// near-identical linker code paths (one permissive, one hardened).
type AdmissionPolicy struct{}

// AdmissionDecision records the outcome for one candidate, with the rule
// that produced it, so pipeline logs and link reasoning can explain drops.
type AdmissionDecision struct {
	Admitted bool
	Rule     string
}

// Admit applies the tier rule for a bare-symbol candidate against the
// original-case document text.
//
//	AlwaysExcluded  never
//	SingleLetter    only on a curated positive phrase for the symbol
//	Acronym         never
//	CommonWord      ALL-CAPS standalone, no lowercase twin, financial context
//	Unambiguous     always
func (AdmissionPolicy) Admit(ticker model.TickerSymbol, cand model.CandidateMatch, originalText string) AdmissionDecision {
	if cand.Kind == model.MatchCashtag {
		return AdmissionDecision{Admitted: true, Rule: "cashtag"}
	}

	switch ticker.Tier {
	case model.TierAlwaysExcluded:
		return AdmissionDecision{Admitted: false, Rule: "always_excluded"}

	case model.TierSingleLetter:
		// A bare single letter is never evidence on its own. The only
		// bare path in is a hand-curated positive phrase ("visa inc")
		// appearing in the document.
		if phrase, ok := positivePhraseHit(ticker.Symbol, originalText); ok {
			return AdmissionDecision{Admitted: true, Rule: "positive_phrase:" + phrase}
		}
		return AdmissionDecision{Admitted: false, Rule: "single_letter"}

	case model.TierAcronym:
		return AdmissionDecision{Admitted: false, Rule: "acronym"}

	case model.TierCommonWord:
		return admitCommonWord(ticker, cand, originalText)

	default:
		return AdmissionDecision{Admitted: true, Rule: "unambiguous"}
	}
}

// admitCommonWord admits a common-word symbol only when all three hold:
// the token appears ALL-CAPS standalone in the original text, its lowercase
// form does not also appear standalone, and the document carries at least
// one financial-context keyword.
func admitCommonWord(ticker model.TickerSymbol, cand model.CandidateMatch, originalText string) AdmissionDecision {
	upper := strings.ToUpper(cand.MatchedText)
	if !containsStandaloneWord(originalText, upper, true) {
		return AdmissionDecision{Admitted: false, Rule: "common_word:not_all_caps"}
	}
	if containsStandaloneWord(originalText, strings.ToLower(upper), true) {
		return AdmissionDecision{Admitted: false, Rule: "common_word:lowercase_twin"}
	}
	if !hasFinancialContext(originalText) {
		return AdmissionDecision{Admitted: false, Rule: "common_word:no_financial_context"}
	}
	return AdmissionDecision{Admitted: true, Rule: "common_word:contextual"}
}

// positivePhraseHit reports whether any curated positive phrase for the
// symbol occurs in the text (case-insensitive, word-boundary match).
func positivePhraseHit(symbol, text string) (string, bool) {
	profile, ok := symbolProfiles[strings.ToUpper(symbol)]
	if !ok {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, phrase := range profile.Positive {
		if containsStandaloneWord(lower, phrase, true) {
			return phrase, true
		}
	}
	return "", false
}

// hasFinancialContext reports whether the document contains at least one
// generic financial keyword.
func hasFinancialContext(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range financialKeywords {
		if containsStandaloneWord(lower, kw, true) {
			return true
		}
	}
	return false
}

// containsStandaloneWord reports whether word occurs in text delimited by
// non-alphanumeric runes on both sides. Go's regexp has no lookaround, so
// the boundary rule is an explicit neighbor check. caseSensitive toggles
// exact-case matching; the common-word rule depends on it.
func containsStandaloneWord(text, word string, caseSensitive bool) bool {
	if word == "" {
		return false
	}
	haystack, needle := text, word
	if !caseSensitive {
		haystack = strings.ToLower(text)
		needle = strings.ToLower(word)
	}

	for from := 0; ; {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return true
		}
		from = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	return !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
