package linker

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ticker-linker/internal/model"
)

type stubFetcher struct {
	text  string
	err   error
	calls atomic.Int64
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestPipeline(t *testing.T, fetcher Fetcher) *Pipeline {
	t.Helper()
	idx, err := BuildAliasIndex(testUniverse())
	require.NoError(t, err)
	return NewPipeline(idx, fetcher, Config{})
}

func TestLinkDocument_CleanCashtags(t *testing.T) {
	p := newTestPipeline(t, nil)

	doc := model.ArticleText{
		ID:     "c1",
		Source: model.SourceRedditComment,
		Title:  "I like $AAPL and $TSLA",
	}

	result := p.LinkDocument(context.Background(), doc)
	require.Len(t, result.Links, 2)

	bySymbol := make(map[string]model.TickerLink)
	for _, l := range result.Links {
		bySymbol[l.Ticker] = l
	}
	require.Contains(t, bySymbol, "AAPL")
	require.Contains(t, bySymbol, "TSLA")
	assert.GreaterOrEqual(t, bySymbol["AAPL"].Confidence, 0.7)
	assert.GreaterOrEqual(t, bySymbol["TSLA"].Confidence, 0.7)
	assert.Equal(t, []string{"$AAPL"}, bySymbol["AAPL"].MatchedTerms)
}

func TestLinkDocument_SlangCollision(t *testing.T) {
	p := newTestPipeline(t, nil)

	doc := model.ArticleText{
		ID:     "c2",
		Source: model.SourceRedditComment,
		Title:  "That ain't it chief",
	}

	result := p.LinkDocument(context.Background(), doc)
	assert.Empty(t, result.Links)
}

func TestLinkDocument_CommonWordCaseSensitivity(t *testing.T) {
	p := newTestPipeline(t, nil)

	tests := []struct {
		name  string
		title string
		want  int
	}{
		{"all caps with financial context", "CAT beat earnings expectations", 1},
		{"all caps without financial context", "CAT chases laser pointer", 0},
		{"mixed case", "Cat beat earnings expectations", 0},
		{"lowercase twin", "CAT earnings are up, my cat disagrees", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := model.ArticleText{ID: "g1", Source: model.SourceGdelt, Title: tt.title}
			result := p.LinkDocument(context.Background(), doc)
			assert.Len(t, result.Links, tt.want)
		})
	}
}

func TestLinkDocument_SocialFixedConfidences(t *testing.T) {
	p := newTestPipeline(t, nil)

	doc := model.ArticleText{
		ID:     "c3",
		Source: model.SourceRedditPost,
		Title:  "TSLA and $AAPL both printing",
	}

	result := p.LinkDocument(context.Background(), doc)
	require.Len(t, result.Links, 2)

	bySymbol := make(map[string]float64)
	for _, l := range result.Links {
		bySymbol[l.Ticker] = l.Confidence
	}
	assert.InDelta(t, 0.9, bySymbol["AAPL"], 0.001)
	assert.InDelta(t, 0.7, bySymbol["TSLA"], 0.001)
}

func TestLinkDocument_DeduplicatesByMatchedText(t *testing.T) {
	p := newTestPipeline(t, nil)

	doc := model.ArticleText{
		ID:     "c4",
		Source: model.SourceRedditComment,
		Title:  "$AAPL $AAPL AAPL $aapl",
	}

	result := p.LinkDocument(context.Background(), doc)
	require.Len(t, result.Links, 1)
	assert.ElementsMatch(t, []string{"$AAPL", "AAPL"}, result.Links[0].MatchedTerms)
}

func TestLinkDocument_SlowPassProducesLink(t *testing.T) {
	fetcher := &stubFetcher{
		text: "Visa Inc (V) reported strong quarterly earnings this week and the stock price rose 4%.",
	}
	p := newTestPipeline(t, fetcher)

	doc := model.ArticleText{
		ID:     "a1",
		Source: model.SourceGdelt,
		Title:  "V shares climb after results",
		URL:    "https://news.example.com/visa-earnings",
	}

	result := p.LinkDocument(context.Background(), doc)
	require.Len(t, result.Links, 1)
	assert.Equal(t, "V", result.Links[0].Ticker)
	assert.GreaterOrEqual(t, result.Links[0].Confidence, 0.8)
	assert.Equal(t, int64(1), fetcher.calls.Load())

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.SlowPassRuns)
	assert.Equal(t, int64(1), stats.FetchAttempts)
	assert.Equal(t, int64(0), stats.FetchFailures)
}

func TestLinkDocument_FetchFailureFinalizesWithZeroLinks(t *testing.T) {
	fetcher := &stubFetcher{err: eris.New("connect timeout")}
	p := newTestPipeline(t, fetcher)

	doc := model.ArticleText{
		ID:     "a2",
		Source: model.SourceGdelt,
		Title:  "V shares climb after results",
		URL:    "https://news.example.com/visa-earnings",
	}

	result := p.LinkDocument(context.Background(), doc)
	assert.Empty(t, result.Links)
	assert.Equal(t, int64(1), p.Stats().FetchFailures)
}

func TestLinkDocument_NoFetchWhenBodyPresent(t *testing.T) {
	fetcher := &stubFetcher{text: "irrelevant"}
	p := newTestPipeline(t, fetcher)

	doc := model.ArticleText{
		ID:     "a3",
		Source: model.SourceGdelt,
		Title:  "V shares climb after results",
		Body:   "Nothing ticker shaped in the body either, visa application backlog grows.",
		URL:    "https://news.example.com/visa",
	}

	result := p.LinkDocument(context.Background(), doc)
	assert.Empty(t, result.Links)
	assert.Equal(t, int64(0), fetcher.calls.Load())
}

func TestLinkDocument_NoFetchWithoutTitleHint(t *testing.T) {
	fetcher := &stubFetcher{text: "irrelevant"}
	p := newTestPipeline(t, fetcher)

	doc := model.ArticleText{
		ID:     "a4",
		Source: model.SourceGdelt,
		Title:  "Weather improves across the region",
		URL:    "https://news.example.com/weather",
	}

	result := p.LinkDocument(context.Background(), doc)
	assert.Empty(t, result.Links)
	assert.Equal(t, int64(0), fetcher.calls.Load())
}

func TestLinkDocument_Idempotent(t *testing.T) {
	p := newTestPipeline(t, nil)

	doc := model.ArticleText{
		ID:     "g2",
		Source: model.SourceGdelt,
		Title:  "Caterpillar update",
		Body:   "CAT raised its dividend after strong quarterly earnings. Excavator demand remains high.",
	}

	first := p.LinkDocument(context.Background(), doc)
	second := p.LinkDocument(context.Background(), doc)
	assert.Equal(t, first, second)
}

func TestLinkDocument_ConfidenceBounds(t *testing.T) {
	p := newTestPipeline(t, nil)

	docs := []model.ArticleText{
		{ID: "b1", Source: model.SourceRedditComment, Title: "$AAPL $TSLA $V $CAT $DD"},
		{ID: "b2", Source: model.SourceGdelt, Title: "CAT earnings surge, stock rally continues"},
		{ID: "b3", Source: model.SourceGdelt, Title: "Visa Inc (V) quarterly earnings beat, stock price up"},
	}
	for _, doc := range docs {
		result := p.LinkDocument(context.Background(), doc)
		for _, link := range result.Links {
			assert.GreaterOrEqual(t, link.Confidence, 0.5, "%s/%s", doc.ID, link.Ticker)
			assert.LessOrEqual(t, link.Confidence, 1.0, "%s/%s", doc.ID, link.Ticker)
			assert.NotEmpty(t, link.MatchedTerms, "%s/%s", doc.ID, link.Ticker)
		}
	}
}

func TestLinkBatch_AlignsResultsWithInput(t *testing.T) {
	p := newTestPipeline(t, nil)

	docs := []model.ArticleText{
		{ID: "d1", Source: model.SourceRedditComment, Title: "$TSLA calls"},
		{ID: "d2", Source: model.SourceRedditComment, Title: "nothing here"},
		{ID: "d3", Source: model.SourceRedditComment, Title: "$AAPL leaps"},
	}

	results, err := p.LinkBatch(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "d1", results[0].ArticleID)
	assert.Len(t, results[0].Links, 1)
	assert.Equal(t, "d2", results[1].ArticleID)
	assert.Empty(t, results[1].Links)
	assert.Equal(t, "d3", results[2].ArticleID)
	assert.Len(t, results[2].Links, 1)
}

func TestLinkBatch_CancelledContext(t *testing.T) {
	p := newTestPipeline(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []model.ArticleText{
		{ID: "d1", Source: model.SourceRedditComment, Title: "$TSLA"},
	}

	results, err := p.LinkBatch(ctx, docs)
	assert.Error(t, err)
	assert.Len(t, results, 1)
}

func TestLinkBatch_EmptyIndexRejected(t *testing.T) {
	// Index construction already rejects an empty universe; the pipeline
	// guards again so a zero-value index cannot fabricate results.
	p := NewPipeline(&AliasIndex{byAlias: map[string]model.TickerSymbol{}}, nil, Config{})

	_, err := p.LinkBatch(context.Background(), []model.ArticleText{{ID: "x"}})
	assert.ErrorIs(t, err, ErrEmptyUniverse)
}
