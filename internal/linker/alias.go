// Package linker resolves ticker mentions in free-form text. It builds an
// alias index over the ticker universe, extracts candidate tokens, filters
// them through a tiered ambiguity policy, and scores survivors against the
// surrounding context. Symbols collide heavily with ordinary English ("A",
// "GOOD", "NOW", "DD"), so every stage is biased toward precision: an
// inconclusive mention is dropped, not guessed.
package linker

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ticker-linker/internal/model"
)

// ErrEmptyUniverse is returned when the ticker universe is empty. The batch
// is aborted rather than silently producing zero links for every document.
var ErrEmptyUniverse = eris.New("linker: empty ticker universe")

// AliasIndex is a case-insensitive symbol → canonical ticker lookup.
// Only exact symbol forms are registered; company-name aliases are
// deliberately excluded because they multiply false positives.
// Immutable after construction and safe for concurrent readers.
type AliasIndex struct {
	byAlias map[string]model.TickerSymbol
	tickers []model.TickerSymbol
}

// BuildAliasIndex constructs the index for one batch. Tickers arriving
// without a tier (the usual case: tier is derived, not stored) are
// classified here, once, so every symbol in the index carries exactly one
// tier.
func BuildAliasIndex(tickers []model.TickerSymbol) (*AliasIndex, error) {
	if len(tickers) == 0 {
		return nil, ErrEmptyUniverse
	}

	idx := &AliasIndex{
		byAlias: make(map[string]model.TickerSymbol, len(tickers)),
		tickers: make([]model.TickerSymbol, 0, len(tickers)),
	}

	for _, t := range tickers {
		sym := strings.ToUpper(strings.TrimSpace(t.Symbol))
		if sym == "" {
			continue
		}
		t.Symbol = sym
		if t.Tier == "" {
			t.Tier = ClassifyTier(sym)
		}
		idx.byAlias[sym] = t
		idx.tickers = append(idx.tickers, t)
	}

	if len(idx.byAlias) == 0 {
		return nil, ErrEmptyUniverse
	}
	return idx, nil
}

// Resolve looks up a token case-insensitively. It returns the canonical
// ticker and true on a hit.
func (idx *AliasIndex) Resolve(token string) (model.TickerSymbol, bool) {
	t, ok := idx.byAlias[strings.ToUpper(token)]
	return t, ok
}

// Size returns the number of distinct symbols in the index.
func (idx *AliasIndex) Size() int {
	return len(idx.byAlias)
}

// Symbols returns the indexed tickers in insertion order.
func (idx *AliasIndex) Symbols() []model.TickerSymbol {
	return idx.tickers
}
