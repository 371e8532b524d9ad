package model

import "time"

// TickerLink is the pipeline output: one admitted, scored mention of a
// ticker in an article. Links below the confidence threshold are discarded
// before they ever become a TickerLink, so Confidence is always >= the
// configured minimum and MatchedTerms is never empty.
type TickerLink struct {
	ArticleID    string    `json:"article_id"`
	Ticker       string    `json:"ticker"`
	Confidence   float64   `json:"confidence"`
	MatchedTerms []string  `json:"matched_terms"`
	Reasoning    []string  `json:"reasoning,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// ArticleLinks pairs an article with the links the pipeline produced for
// it. Zero links is a valid, terminal outcome.
type ArticleLinks struct {
	ArticleID string       `json:"article_id"`
	Links     []TickerLink `json:"links"`
}

// DocState tracks a document through the per-document state machine.
// Every document terminates in DocFinalized; a fetch failure transitions
// straight to DocFinalized with zero links.
type DocState string

const (
	DocNotProcessed DocState = "not_processed"
	DocFastPassDone DocState = "fast_pass_done"
	DocFetching     DocState = "fetching"
	DocSlowPassDone DocState = "slow_pass_done"
	DocFinalized    DocState = "finalized"
)
