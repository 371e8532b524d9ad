package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ticker-linker/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tickers (
	symbol       TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	tier         TEXT NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS articles (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ticker_links (
	article_id    TEXT NOT NULL REFERENCES articles(id),
	ticker        TEXT NOT NULL,
	confidence    REAL NOT NULL,
	matched_terms TEXT NOT NULL,
	reasoning     TEXT NOT NULL DEFAULT '[]',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (article_id, ticker)
);

CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);
CREATE INDEX IF NOT EXISTS idx_ticker_links_ticker ON ticker_links(ticker);
CREATE INDEX IF NOT EXISTS idx_ticker_links_created_at ON ticker_links(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertTickers(ctx context.Context, tickers []model.TickerSymbol) (int, error) {
	if len(tickers) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert tickers")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tickers (symbol, display_name, tier, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET
		   display_name = excluded.display_name,
		   tier         = excluded.tier,
		   updated_at   = excluded.updated_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert tickers")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	count := 0
	for _, t := range tickers {
		if _, err := stmt.ExecContext(ctx, t.Symbol, t.DisplayName, string(t.Tier), now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert ticker %s", t.Symbol)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert tickers")
	}
	return count, nil
}

func (s *SQLiteStore) ListTickers(ctx context.Context) ([]model.TickerSymbol, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, display_name, tier FROM tickers ORDER BY symbol`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tickers")
	}
	defer rows.Close()

	var out []model.TickerSymbol
	for rows.Next() {
		var t model.TickerSymbol
		var tier string
		if err := rows.Scan(&t.Symbol, &t.DisplayName, &tier); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ticker")
		}
		t.Tier = model.AmbiguityTier(tier)
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate tickers")
}

func (s *SQLiteStore) SaveArticles(ctx context.Context, articles []model.ArticleText) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save articles")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (id, source, title, body, url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare save articles")
	}
	defer stmt.Close()

	count := 0
	for _, a := range articles {
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		res, err := stmt.ExecContext(ctx, a.ID, string(a.Source), a.Title, a.Body, a.URL, createdAt)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: save article %s", a.ID)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			count++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit save articles")
	}
	return count, nil
}

func (s *SQLiteStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]model.ArticleText, error) {
	query := `SELECT a.id, a.source, a.title, a.body, a.url, a.created_at FROM articles a`
	var args []any
	var where []string

	if filter.Unlinked {
		query += ` LEFT JOIN ticker_links l ON l.article_id = a.id`
		where = append(where, `l.article_id IS NULL`)
	}
	if filter.Source != "" {
		where = append(where, `a.source = ?`)
		args = append(args, string(filter.Source))
	}
	for i, cond := range where {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY a.created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list articles")
	}
	defer rows.Close()

	var out []model.ArticleText
	for rows.Next() {
		var a model.ArticleText
		var source string
		if err := rows.Scan(&a.ID, &source, &a.Title, &a.Body, &a.URL, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan article")
		}
		a.Source = model.ArticleSource(source)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate articles")
}

func (s *SQLiteStore) ReplaceLinks(ctx context.Context, articleID string, links []model.TickerLink) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace links")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticker_links WHERE article_id = ?`, articleID); err != nil {
		return eris.Wrapf(err, "sqlite: clear links for %s", articleID)
	}

	now := time.Now().UTC()
	for _, l := range links {
		terms, err := json.Marshal(l.MatchedTerms)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal matched terms")
		}
		reasoning, err := json.Marshal(l.Reasoning)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal reasoning")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ticker_links (article_id, ticker, confidence, matched_terms, reasoning, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			articleID, l.Ticker, l.Confidence, string(terms), string(reasoning), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert link %s/%s", articleID, l.Ticker)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace links")
}

func (s *SQLiteStore) ListLinks(ctx context.Context, filter LinkFilter) ([]model.TickerLink, error) {
	query := `SELECT article_id, ticker, confidence, matched_terms, reasoning, created_at FROM ticker_links`
	var args []any
	var where []string

	if filter.Ticker != "" {
		where = append(where, `ticker = ?`)
		args = append(args, filter.Ticker)
	}
	if filter.ArticleID != "" {
		where = append(where, `article_id = ?`)
		args = append(args, filter.ArticleID)
	}
	for i, cond := range where {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY created_at DESC, ticker`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list links")
	}
	defer rows.Close()

	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]model.TickerLink, error) {
	var out []model.TickerLink
	for rows.Next() {
		var l model.TickerLink
		var terms, reasoning string
		if err := rows.Scan(&l.ArticleID, &l.Ticker, &l.Confidence, &terms, &reasoning, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan link")
		}
		if err := json.Unmarshal([]byte(terms), &l.MatchedTerms); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal matched terms")
		}
		if err := json.Unmarshal([]byte(reasoning), &l.Reasoning); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal reasoning")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate links")
}

func (s *SQLiteStore) LinkStats(ctx context.Context, since time.Time) (*LinkStats, error) {
	stats := &LinkStats{Since: since}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE created_at >= ?`, since,
	).Scan(&stats.Articles)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count articles")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT article_id), COUNT(*) FROM ticker_links WHERE created_at >= ?`, since,
	).Scan(&stats.ArticlesLinked, &stats.Links)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count links")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ticker, COUNT(*) AS n FROM ticker_links
		 WHERE created_at >= ?
		 GROUP BY ticker ORDER BY n DESC, ticker LIMIT 10`, since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top tickers")
	}
	defer rows.Close()

	for rows.Next() {
		var tc TickerCount
		if err := rows.Scan(&tc.Ticker, &tc.Links); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan top ticker")
		}
		stats.TopTickers = append(stats.TopTickers, tc)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: iterate top tickers")
}
