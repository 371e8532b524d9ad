package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ticker-linker/internal/model"
)

func testUniverse() []model.TickerSymbol {
	return []model.TickerSymbol{
		{Symbol: "AAPL", DisplayName: "Apple Inc"},
		{Symbol: "TSLA", DisplayName: "Tesla Inc"},
		{Symbol: "V", DisplayName: "Visa Inc"},
		{Symbol: "T", DisplayName: "AT&T Inc"},
		{Symbol: "A", DisplayName: "Agilent Technologies"},
		{Symbol: "CAT", DisplayName: "Caterpillar Inc"},
		{Symbol: "NOW", DisplayName: "ServiceNow Inc"},
		{Symbol: "DD", DisplayName: "DuPont de Nemours"},
		{Symbol: "AIN", DisplayName: "Albany International"},
		{Symbol: "BRK.B", DisplayName: "Berkshire Hathaway"},
	}
}

func TestBuildAliasIndex_EmptyUniverse(t *testing.T) {
	_, err := BuildAliasIndex(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyUniverse)

	_, err = BuildAliasIndex([]model.TickerSymbol{{Symbol: "  "}})
	assert.ErrorIs(t, err, ErrEmptyUniverse)
}

func TestBuildAliasIndex_ResolvesCaseInsensitively(t *testing.T) {
	idx, err := BuildAliasIndex(testUniverse())
	require.NoError(t, err)

	for _, token := range []string{"AAPL", "aapl", "Aapl"} {
		ticker, ok := idx.Resolve(token)
		require.True(t, ok, "token %q should resolve", token)
		assert.Equal(t, "AAPL", ticker.Symbol)
	}

	ticker, ok := idx.Resolve("brk.b")
	require.True(t, ok)
	assert.Equal(t, "BRK.B", ticker.Symbol)

	_, ok = idx.Resolve("ZZZZ")
	assert.False(t, ok)
}

func TestBuildAliasIndex_DerivesTiers(t *testing.T) {
	idx, err := BuildAliasIndex(testUniverse())
	require.NoError(t, err)

	tests := []struct {
		symbol string
		tier   model.AmbiguityTier
	}{
		{"AAPL", model.TierUnambiguous},
		{"V", model.TierSingleLetter},
		{"A", model.TierAlwaysExcluded},
		{"CAT", model.TierCommonWord},
		{"NOW", model.TierCommonWord},
		{"DD", model.TierAcronym},
		{"BRK.B", model.TierUnambiguous},
	}
	for _, tt := range tests {
		ticker, ok := idx.Resolve(tt.symbol)
		require.True(t, ok, tt.symbol)
		assert.Equal(t, tt.tier, ticker.Tier, tt.symbol)
	}
}

func TestBuildAliasIndex_PreservesSuppliedTier(t *testing.T) {
	idx, err := BuildAliasIndex([]model.TickerSymbol{
		{Symbol: "CAT", Tier: model.TierUnambiguous},
	})
	require.NoError(t, err)

	ticker, ok := idx.Resolve("CAT")
	require.True(t, ok)
	assert.Equal(t, model.TierUnambiguous, ticker.Tier)
}

func TestBuildAliasIndex_NormalizesSymbols(t *testing.T) {
	idx, err := BuildAliasIndex([]model.TickerSymbol{
		{Symbol: " aapl "},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Size())

	ticker, ok := idx.Resolve("AAPL")
	require.True(t, ok)
	assert.Equal(t, "AAPL", ticker.Symbol)
}
