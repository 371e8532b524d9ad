package scrape

import (
	"context"

	"github.com/rotisserie/eris"
)

// Pool bounds concurrent fetches across the whole batch. Each caller
// blocks for a slot (or until its context ends), so sibling fetches never
// starve and a stalled host cannot absorb every worker.
type Pool struct {
	scraper *Scraper
	slots   chan struct{}
}

// NewPool wraps scraper with a concurrency bound. workers defaults to 8
// when non-positive.
func NewPool(scraper *Scraper, workers int) *Pool {
	if workers <= 0 {
		workers = 8
	}
	return &Pool{
		scraper: scraper,
		slots:   make(chan struct{}, workers),
	}
}

// Fetch acquires a slot and delegates to the scraper. A context cancelled
// while waiting aborts without fetching.
func (p *Pool) Fetch(ctx context.Context, url string) (string, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return "", eris.Wrap(ctx.Err(), "scrape: pool wait")
	}
	defer func() { <-p.slots }()

	return p.scraper.Fetch(ctx, url)
}
