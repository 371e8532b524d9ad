package model

// AmbiguityTier is a static classification of how likely a ticker symbol is
// to collide with ordinary English usage. It is a pure function of the
// symbol text (length and word-list membership), never of document context.
type AmbiguityTier string

const (
	// TierUnambiguous symbols (e.g. AAPL, TSLA) are admitted unconditionally.
	TierUnambiguous AmbiguityTier = "unambiguous"
	// TierSingleLetter symbols (e.g. F, T) require a cashtag.
	TierSingleLetter AmbiguityTier = "single_letter"
	// TierCommonWord symbols (e.g. ALL, KEY, NOW) collide with English words
	// and are admitted bare only under strict casing and context rules.
	TierCommonWord AmbiguityTier = "common_word"
	// TierAcronym symbols (e.g. DD, PM) collide with internet slang and
	// require a cashtag.
	TierAcronym AmbiguityTier = "acronym"
	// TierAlwaysExcluded symbols ("A", "I") are never admitted bare.
	TierAlwaysExcluded AmbiguityTier = "always_excluded"
)

// AllAmbiguityTiers returns all defined tiers.
func AllAmbiguityTiers() []AmbiguityTier {
	return []AmbiguityTier{
		TierUnambiguous,
		TierSingleLetter,
		TierCommonWord,
		TierAcronym,
		TierAlwaysExcluded,
	}
}

// TickerSymbol is one entry of the ticker universe. Canonical symbols are
// 1-5 uppercase letters plus an optional single-letter class suffix
// (e.g. BRK.B). Values are supplied by the persistence collaborator and are
// immutable once built.
type TickerSymbol struct {
	Symbol      string        `json:"symbol"`
	DisplayName string        `json:"display_name"`
	Tier        AmbiguityTier `json:"ambiguity_tier"`
}

// MatchKind distinguishes how a candidate token was written in the text.
type MatchKind string

const (
	// MatchCashtag is a $-prefixed token ($AAPL), the strongest signal.
	MatchCashtag MatchKind = "cashtag"
	// MatchBareSymbol is an unprefixed uppercase token (AAPL).
	MatchBareSymbol MatchKind = "bare_symbol"
)

// CandidateMatch is one raw occurrence of a ticker-shaped token in a
// document. Candidates are ephemeral; they exist only between extraction
// and scoring and are never persisted.
type CandidateMatch struct {
	Symbol      string    `json:"symbol"`
	MatchedText string    `json:"matched_text"`
	Kind        MatchKind `json:"kind"`
	SpanStart   int       `json:"span_start"`
	SpanEnd     int       `json:"span_end"`
}
