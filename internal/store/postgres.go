package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ticker-linker/internal/model"
)

// PgxPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tickers (
	symbol       TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	tier         TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS articles (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ticker_links (
	article_id    TEXT NOT NULL REFERENCES articles(id),
	ticker        TEXT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	matched_terms JSONB NOT NULL,
	reasoning     JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (article_id, ticker)
);

CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);
CREATE INDEX IF NOT EXISTS idx_ticker_links_ticker ON ticker_links(ticker);
CREATE INDEX IF NOT EXISTS idx_ticker_links_created_at ON ticker_links(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertTickers(ctx context.Context, tickers []model.TickerSymbol) (int, error) {
	if len(tickers) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin upsert tickers")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	count := 0
	for _, t := range tickers {
		_, err := tx.Exec(ctx,
			`INSERT INTO tickers (symbol, display_name, tier, updated_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (symbol) DO UPDATE SET
			   display_name = EXCLUDED.display_name,
			   tier         = EXCLUDED.tier,
			   updated_at   = EXCLUDED.updated_at`,
			t.Symbol, t.DisplayName, string(t.Tier), now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert ticker %s", t.Symbol)
		}
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit upsert tickers")
	}
	return count, nil
}

func (s *PostgresStore) ListTickers(ctx context.Context) ([]model.TickerSymbol, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, display_name, tier FROM tickers ORDER BY symbol`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tickers")
	}
	defer rows.Close()

	var out []model.TickerSymbol
	for rows.Next() {
		var t model.TickerSymbol
		var tier string
		if err := rows.Scan(&t.Symbol, &t.DisplayName, &tier); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ticker")
		}
		t.Tier = model.AmbiguityTier(tier)
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate tickers")
}

func (s *PostgresStore) SaveArticles(ctx context.Context, articles []model.ArticleText) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin save articles")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	count := 0
	for _, a := range articles {
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO articles (id, source, title, body, url, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			a.ID, string(a.Source), a.Title, a.Body, a.URL, createdAt,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: save article %s", a.ID)
		}
		count += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit save articles")
	}
	return count, nil
}

func (s *PostgresStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]model.ArticleText, error) {
	query := `SELECT a.id, a.source, a.title, a.body, a.url, a.created_at FROM articles a`
	var args []any

	if filter.Unlinked {
		query += ` LEFT JOIN ticker_links l ON l.article_id = a.id WHERE l.article_id IS NULL`
	}
	if filter.Source != "" {
		if filter.Unlinked {
			query += ` AND`
		} else {
			query += ` WHERE`
		}
		args = append(args, string(filter.Source))
		query += ` a.source = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY a.created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list articles")
	}
	defer rows.Close()

	var out []model.ArticleText
	for rows.Next() {
		var a model.ArticleText
		var source string
		if err := rows.Scan(&a.ID, &source, &a.Title, &a.Body, &a.URL, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan article")
		}
		a.Source = model.ArticleSource(source)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate articles")
}

func (s *PostgresStore) ReplaceLinks(ctx context.Context, articleID string, links []model.TickerLink) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace links")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM ticker_links WHERE article_id = $1`, articleID); err != nil {
		return eris.Wrapf(err, "postgres: clear links for %s", articleID)
	}

	now := time.Now().UTC()
	for _, l := range links {
		terms, err := json.Marshal(l.MatchedTerms)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal matched terms")
		}
		reasoning, err := json.Marshal(l.Reasoning)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal reasoning")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO ticker_links (article_id, ticker, confidence, matched_terms, reasoning, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			articleID, l.Ticker, l.Confidence, terms, reasoning, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert link %s/%s", articleID, l.Ticker)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace links")
}

func (s *PostgresStore) ListLinks(ctx context.Context, filter LinkFilter) ([]model.TickerLink, error) {
	query := `SELECT article_id, ticker, confidence, matched_terms, reasoning, created_at FROM ticker_links`
	var args []any
	var where []string

	if filter.Ticker != "" {
		args = append(args, filter.Ticker)
		where = append(where, `ticker = $`+strconv.Itoa(len(args)))
	}
	if filter.ArticleID != "" {
		args = append(args, filter.ArticleID)
		where = append(where, `article_id = $`+strconv.Itoa(len(args)))
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
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list links")
	}
	defer rows.Close()

	var out []model.TickerLink
	for rows.Next() {
		var l model.TickerLink
		var terms, reasoning []byte
		if err := rows.Scan(&l.ArticleID, &l.Ticker, &l.Confidence, &terms, &reasoning, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan link")
		}
		if err := json.Unmarshal(terms, &l.MatchedTerms); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal matched terms")
		}
		if err := json.Unmarshal(reasoning, &l.Reasoning); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal reasoning")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate links")
}

func (s *PostgresStore) LinkStats(ctx context.Context, since time.Time) (*LinkStats, error) {
	stats := &LinkStats{Since: since}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM articles WHERE created_at >= $1`, since,
	).Scan(&stats.Articles)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: count articles")
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT article_id), COUNT(*) FROM ticker_links WHERE created_at >= $1`, since,
	).Scan(&stats.ArticlesLinked, &stats.Links)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: count links")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT ticker, COUNT(*) AS n FROM ticker_links
		 WHERE created_at >= $1
		 GROUP BY ticker ORDER BY n DESC, ticker LIMIT 10`, since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top tickers")
	}
	defer rows.Close()

	for rows.Next() {
		var tc TickerCount
		if err := rows.Scan(&tc.Ticker, &tc.Links); err != nil {
			return nil, eris.Wrap(err, "postgres: scan top ticker")
		}
		stats.TopTickers = append(stats.TopTickers, tc)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: iterate top tickers")
}
