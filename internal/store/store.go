// Package store persists the ticker universe, ingested articles, and the
// links the pipeline produces. Links are keyed (article_id, ticker);
// re-linking an article replaces its links atomically.
package store

import (
	"context"
	"time"

	"github.com/sells-group/ticker-linker/internal/model"
)

// ArticleFilter selects articles for listing.
type ArticleFilter struct {
	Source   model.ArticleSource `json:"source,omitempty"`
	Unlinked bool                `json:"unlinked,omitempty"`
	Limit    int                 `json:"limit,omitempty"`
}

// LinkFilter selects links for listing.
type LinkFilter struct {
	Ticker    string `json:"ticker,omitempty"`
	ArticleID string `json:"article_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// TickerCount is one row of the per-ticker link leaderboard.
type TickerCount struct {
	Ticker string `json:"ticker"`
	Links  int    `json:"links"`
}

// LinkStats summarizes link volume since a cutoff.
type LinkStats struct {
	Articles       int           `json:"articles"`
	ArticlesLinked int           `json:"articles_linked"`
	Links          int           `json:"links"`
	TopTickers     []TickerCount `json:"top_tickers"`
	Since          time.Time     `json:"since"`
}

// Store is the persistence interface for the linking pipeline.
type Store interface {
	// Ticker universe
	UpsertTickers(ctx context.Context, tickers []model.TickerSymbol) (int, error)
	ListTickers(ctx context.Context) ([]model.TickerSymbol, error)

	// Articles
	SaveArticles(ctx context.Context, articles []model.ArticleText) (int, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]model.ArticleText, error)

	// Links
	ReplaceLinks(ctx context.Context, articleID string, links []model.TickerLink) error
	ListLinks(ctx context.Context, filter LinkFilter) ([]model.TickerLink, error)
	LinkStats(ctx context.Context, since time.Time) (*LinkStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
