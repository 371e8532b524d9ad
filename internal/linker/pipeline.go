package linker

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ticker-linker/internal/model"
	"github.com/sells-group/ticker-linker/internal/monitoring"
)

// Fast-pass confidences for short social sources. High-volume, low-signal
// content skips the context scorer; any admitted candidate is accepted at a
// fixed confidence instead.
const (
	fastPassCashtagConfidence = 0.9
	fastPassBareConfidence    = 0.7
)

// Fetcher acquires readable body text for a URL. Implemented by the scrape
// package; nil disables the slow pass.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config tunes the linking pipeline. Zero values fall back to defaults.
type Config struct {
	// MinConfidence is the emission threshold; sub-threshold matches are
	// discarded, never persisted with low confidence. Default 0.5.
	MinConfidence float64
	// BatchWorkers bounds concurrent document processing. Default 4.
	BatchWorkers int
	// SocialTextCap / ArticleTextCap bound per-document extraction cost.
	SocialTextCap  int
	ArticleTextCap int
}

func (c Config) withDefaults() Config {
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.5
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = 4
	}
	if c.SocialTextCap <= 0 {
		c.SocialTextCap = defaultSocialTextCap
	}
	if c.ArticleTextCap <= 0 {
		c.ArticleTextCap = defaultArticleTextCap
	}
	return c
}

// Pipeline composes the alias index, extractor, admission policy, scorer,
// and content fetcher into the two-pass per-document algorithm. The index
// is built once per batch and shared read-only across workers.
type Pipeline struct {
	index     *AliasIndex
	extractor *Extractor
	policy    AdmissionPolicy
	fetcher   Fetcher
	cfg       Config
	stats     *monitoring.BatchStats
}

// NewPipeline creates a pipeline over the given index. fetcher may be nil,
// which disables the slow pass.
func NewPipeline(index *AliasIndex, fetcher Fetcher, cfg Config) *Pipeline {
	return &Pipeline{
		index:     index,
		extractor: NewExtractor(index),
		fetcher:   fetcher,
		cfg:       cfg.withDefaults(),
		stats:     &monitoring.BatchStats{},
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() monitoring.BatchSnapshot {
	return p.stats.Snapshot()
}

// LinkBatch processes documents independently and order-insensitively
// across a bounded worker group. Results are positionally aligned with the
// input. Cancellation stops new documents and aborts outstanding fetches;
// in-flight CPU work finishes, so every returned entry is complete.
func (p *Pipeline) LinkBatch(ctx context.Context, docs []model.ArticleText) ([]model.ArticleLinks, error) {
	if p.index.Size() == 0 {
		return nil, ErrEmptyUniverse
	}

	results := make([]model.ArticleLinks, len(docs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.BatchWorkers)

	for i, doc := range docs {
		g.Go(func() error {
			if gCtx.Err() != nil {
				results[i] = model.ArticleLinks{ArticleID: doc.ID}
				return nil
			}
			results[i] = p.LinkDocument(gCtx, doc)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// LinkDocument runs the per-document state machine:
// NotProcessed → FastPassDone → (Fetching → SlowPassDone)? → Finalized.
// A fetch failure finalizes with zero links rather than retrying.
func (p *Pipeline) LinkDocument(ctx context.Context, doc model.ArticleText) model.ArticleLinks {
	defer p.stats.DocProcessed()

	state := model.DocNotProcessed
	defer func() {
		zap.L().Debug("linker: document finalized",
			zap.String("article_id", doc.ID),
			zap.String("last_state", string(state)),
		)
	}()

	links := p.runPass(p.fastPassText(doc), doc.Source.IsShortSocial())
	state = model.DocFastPassDone

	if len(links) == 0 && p.needsFetch(doc) {
		state = model.DocFetching
		p.stats.SlowPassRun()
		p.stats.FetchAttempt()

		content, err := p.fetcher.Fetch(ctx, doc.URL)
		if err != nil {
			p.stats.FetchFailure()
			zap.L().Warn("linker: content fetch failed, finalizing with zero links",
				zap.String("article_id", doc.ID),
				zap.String("url", doc.URL),
				zap.Error(err),
			)
			// Fetch failures go straight to finalized; no retries in-run.
			state = model.DocFinalized
			return model.ArticleLinks{ArticleID: doc.ID}
		}

		eff := model.EffectiveText{
			ArticleID: doc.ID,
			Source:    doc.Source,
			Text:      TruncateAtSentence(content, p.cfg.ArticleTextCap),
			Fetched:   true,
		}
		// Fetched content is long-form regardless of source; always score.
		links = p.runPass(eff, false)
		state = model.DocSlowPassDone
	}

	state = model.DocFinalized

	for i := range links {
		links[i].ArticleID = doc.ID
	}
	p.stats.LinksEmitted(len(links))

	return model.ArticleLinks{ArticleID: doc.ID, Links: links}
}

// fastPassText derives the fast-pass effective text from title and body.
// The input document is never mutated; every pass gets a fresh value.
func (p *Pipeline) fastPassText(doc model.ArticleText) model.EffectiveText {
	text := doc.Title
	if doc.HasBody() {
		text = doc.Title + "\n\n" + doc.Body
	}
	limit := p.cfg.ArticleTextCap
	if doc.Source.IsShortSocial() {
		limit = p.cfg.SocialTextCap
	}
	return model.EffectiveText{
		ArticleID: doc.ID,
		Source:    doc.Source,
		Text:      TruncateAtSentence(text, limit),
	}
}

// needsFetch gates the slow pass: only documents with no body whose title
// already hints at a ticker mention are worth a network round trip.
func (p *Pipeline) needsFetch(doc model.ArticleText) bool {
	if p.fetcher == nil || doc.HasBody() || doc.URL == "" {
		return false
	}
	return p.TitleHint(doc.Title)
}

// TitleHint is the cheap pre-filter for the slow pass: true when the title
// contains any token that resolves through the alias index, before any
// admission or scoring.
func (p *Pipeline) TitleHint(title string) bool {
	return len(p.extractor.Extract(title)) > 0
}

// runPass executes extraction, admission, and scoring over one effective
// text value. When social is true the context scorer is skipped and
// admitted candidates take the fixed fast-pass confidences.
func (p *Pipeline) runPass(eff model.EffectiveText, social bool) []model.TickerLink {
	candidates := p.extractor.Extract(eff.Text)
	if len(candidates) == 0 {
		return nil
	}

	// Group per symbol, dedup occurrences by matched text, keep first-seen
	// order so output is deterministic.
	type group struct {
		ticker  model.TickerSymbol
		terms   []string
		seen    map[string]struct{}
		cashtag bool
	}
	var order []string
	groups := make(map[string]*group)

	for _, cand := range candidates {
		p.stats.CandidateSeen()

		ticker, ok := p.index.Resolve(cand.Symbol)
		if !ok {
			continue
		}
		decision := p.policy.Admit(ticker, cand, eff.Text)
		if !decision.Admitted {
			zap.L().Debug("linker: candidate rejected",
				zap.String("article_id", eff.ArticleID),
				zap.String("symbol", cand.Symbol),
				zap.String("rule", decision.Rule),
			)
			continue
		}
		p.stats.CandidateAdmitted()

		grp, ok := groups[ticker.Symbol]
		if !ok {
			grp = &group{ticker: ticker, seen: make(map[string]struct{})}
			groups[ticker.Symbol] = grp
			order = append(order, ticker.Symbol)
		}
		if _, dup := grp.seen[cand.MatchedText]; !dup {
			grp.seen[cand.MatchedText] = struct{}{}
			grp.terms = append(grp.terms, cand.MatchedText)
		}
		if cand.Kind == model.MatchCashtag {
			grp.cashtag = true
		}
	}

	var links []model.TickerLink
	for _, sym := range order {
		grp := groups[sym]

		var confidence float64
		var reasoning []string
		if social {
			confidence = fastPassBareConfidence
			reasoning = []string{"short social source, fixed confidence"}
			if grp.cashtag {
				confidence = fastPassCashtagConfidence
				reasoning = []string{"short social source, cashtag"}
			}
		} else {
			confidence, reasoning = Score(grp.ticker, eff.Text, grp.terms)
		}

		if confidence < p.cfg.MinConfidence {
			p.stats.SubThresholdDropped()
			zap.L().Debug("linker: sub-threshold match dropped",
				zap.String("article_id", eff.ArticleID),
				zap.String("symbol", sym),
				zap.Float64("confidence", confidence),
			)
			continue
		}

		links = append(links, model.TickerLink{
			ArticleID:    eff.ArticleID,
			Ticker:       sym,
			Confidence:   confidence,
			MatchedTerms: grp.terms,
			Reasoning:    reasoning,
		})
	}
	return links
}
