package model

import "time"

// ArticleSource identifies which collector produced a document.
type ArticleSource string

const (
	SourceRedditComment ArticleSource = "reddit_comment"
	SourceRedditPost    ArticleSource = "reddit_post"
	SourceGdelt         ArticleSource = "gdelt"
	SourceOther         ArticleSource = "other"
)

// IsShortSocial reports whether the source is high-volume, low-signal
// social content. The pipeline skips context scoring for these and accepts
// admitted candidates at fixed confidences.
func (s ArticleSource) IsShortSocial() bool {
	return s == SourceRedditComment || s == SourceRedditPost
}

// ArticleText is a read-only input document. The linking engine never
// mutates it; derived text for the slow pass is carried in a separate
// EffectiveText value.
type ArticleText struct {
	ID        string        `json:"id" yaml:"id"`
	Source    ArticleSource `json:"source" yaml:"source"`
	Title     string        `json:"title" yaml:"title"`
	Body      string        `json:"body,omitempty" yaml:"body,omitempty"`
	URL       string        `json:"url,omitempty" yaml:"url,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// HasBody reports whether the document arrived with body text.
func (a ArticleText) HasBody() bool {
	return a.Body != ""
}

// EffectiveText is the text a single linking pass actually runs against.
// The fast pass derives it from title+body; the slow pass builds a fresh
// value from fetched content. Constructing a new value per pass replaces
// the upstream habit of temporarily overwriting the article body.
type EffectiveText struct {
	ArticleID string
	Source    ArticleSource
	Text      string
	Fetched   bool
}
