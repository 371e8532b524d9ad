package linker

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/ticker-linker/internal/model"
)

// Per-source caps on text length before extraction. Long bodies are
// truncated at a sentence boundary near the cap; recall on very long
// articles is traded for bounded per-document cost.
const (
	defaultArticleTextCap = 1000
	defaultSocialTextCap  = 500
)

// cashtagRe matches $-prefixed symbols in any case ($AAPL, $aapl, $brk.b).
// RE2 has no lookahead, so the trailing boundary is verified separately.
var cashtagRe = regexp.MustCompile(`(?i)\$([A-Z]{1,5}(?:\.[A-Z])?)`)

// bareSymbolRe matches uppercase ticker-shaped tokens against the
// original-case text. Matching original case is what keeps "Apple" from
// colliding with AAPL and "aint" from colliding with AIN.
var bareSymbolRe = regexp.MustCompile(`[A-Z]{1,5}(?:\.[A-Z])?`)

// Extractor tokenizes document text and emits raw candidate matches. It
// only emits tokens that resolve through the alias index; admission and
// scoring happen downstream.
type Extractor struct {
	index *AliasIndex
}

// NewExtractor creates an Extractor over the given index.
func NewExtractor(index *AliasIndex) *Extractor {
	return &Extractor{index: index}
}

// Extract runs the cashtag pass and the bare-symbol pass over text and
// returns every resolving occurrence. Empty or whitespace-only text yields
// an empty slice, never an error.
func (e *Extractor) Extract(text string) []model.CandidateMatch {
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []model.CandidateMatch
	out = append(out, e.extractCashtags(text)...)
	out = append(out, e.extractBareSymbols(text)...)
	return out
}

// extractCashtags finds $SYMBOL tokens case-insensitively. The cashtag is
// the strongest possible signal; these candidates bypass the ambiguity
// policy entirely.
func (e *Extractor) extractCashtags(text string) []model.CandidateMatch {
	var out []model.CandidateMatch
	for _, m := range cashtagRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		if !boundaryAfter(text, end) {
			// $APPLETREE is not a cashtag for APPLE.
			continue
		}
		token := text[start:end]
		ticker, ok := e.index.Resolve(token)
		if !ok {
			continue
		}
		out = append(out, model.CandidateMatch{
			Symbol:      ticker.Symbol,
			MatchedText: "$" + strings.ToUpper(token),
			Kind:        model.MatchCashtag,
			SpanStart:   m[0],
			SpanEnd:     end,
		})
	}
	return out
}

// extractBareSymbols finds unprefixed uppercase tokens with strict word
// boundaries on both sides, so "APPLETREE" never yields AAPL and "$AAPL"
// is left to the cashtag pass.
func (e *Extractor) extractBareSymbols(text string) []model.CandidateMatch {
	var out []model.CandidateMatch
	for _, m := range bareSymbolRe.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		if !boundaryBefore(text, start) || !boundaryAfter(text, end) {
			continue
		}
		if start > 0 && text[start-1] == '$' {
			continue
		}
		token := text[start:end]
		ticker, ok := e.index.Resolve(token)
		if !ok {
			continue
		}
		out = append(out, model.CandidateMatch{
			Symbol:      ticker.Symbol,
			MatchedText: token,
			Kind:        model.MatchBareSymbol,
			SpanStart:   start,
			SpanEnd:     end,
		})
	}
	return out
}

// TruncateAtSentence caps text at roughly max characters, preferring to cut
// at the last sentence boundary inside the cap and falling back to the last
// space, then a hard cut.
func TruncateAtSentence(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	window := text[:max]

	cut := -1
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if i := strings.LastIndex(window, sep); i > cut {
			cut = i + len(sep) - 1
		}
	}
	if cut > 0 {
		return strings.TrimRight(window[:cut+1], " ")
	}
	if i := strings.LastIndexByte(window, ' '); i > 0 {
		return window[:i]
	}
	return window
}
