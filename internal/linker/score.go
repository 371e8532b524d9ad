package linker

import (
	"fmt"
	"strings"

	"github.com/sells-group/ticker-linker/internal/model"
)

// Scoring weights. Negative context outweighs every positive signal
// combined: a "visa application" document should never recover to the
// emission threshold on vocabulary density alone.
const (
	baseConfidence       = 0.5
	negativeKeywordScale = 0.6
	positiveKeywordScale = 0.3
	financialScale       = 0.15
	industryScale        = 0.1
)

// Score computes a confidence in [0,1] for an admitted candidate symbol
// given the full document text, together with the evidence tags that
// produced it. Pure function: no persistence, no network, no state.
func Score(ticker model.TickerSymbol, docText string, matchedTerms []string) (float64, []string) {
	lower := strings.ToLower(docText)
	profile := profileFor(ticker.Symbol)

	confidence := baseConfidence
	reasoning := []string{fmt.Sprintf("matched %s", strings.Join(matchedTerms, ", "))}

	negRatio, negHits := keywordHitRatio(lower, profile.Negative)
	if negRatio > 0 {
		confidence -= negativeKeywordScale * negRatio
		reasoning = append(reasoning, "negative context: "+strings.Join(negHits, ", "))
	}

	posRatio, posHits := keywordHitRatio(lower, profile.Positive)
	if posRatio > 0 {
		confidence += positiveKeywordScale * posRatio
		reasoning = append(reasoning, "positive context: "+strings.Join(posHits, ", "))
	}

	finRatio, finHits := keywordHitRatio(lower, financialKeywords)
	if finRatio > 0 {
		confidence += financialScale * finRatio
		reasoning = append(reasoning, "financial context: "+strings.Join(finHits, ", "))
	}

	indRatio, indHits := keywordHitRatio(lower, profile.Industry)
	if indRatio > 0 {
		confidence += industryScale * indRatio
		reasoning = append(reasoning, "industry context: "+strings.Join(indHits, ", "))
	}

	// Single-letter symbols stay maximally suspect even behind a cashtag:
	// without a curated positive hit the mention scores zero.
	if ticker.Tier == model.TierSingleLetter || ticker.Tier == model.TierAlwaysExcluded {
		if len(posHits) == 0 {
			confidence = 0
			reasoning = append(reasoning, "single letter without positive context")
		}
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence, reasoning
}

// keywordHitRatio returns the fraction of keywords found standalone in the
// lowercased text, plus the keywords that hit.
func keywordHitRatio(lowerText string, keywords []string) (float64, []string) {
	if len(keywords) == 0 {
		return 0, nil
	}
	var hits []string
	for _, kw := range keywords {
		if containsStandaloneWord(lowerText, kw, true) {
			hits = append(hits, kw)
		}
	}
	if len(hits) == 0 {
		return 0, nil
	}
	return float64(len(hits)) / float64(len(keywords)), hits
}
