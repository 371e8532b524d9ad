package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArticleSource_IsShortSocial(t *testing.T) {
	tests := []struct {
		source ArticleSource
		want   bool
	}{
		{SourceRedditComment, true},
		{SourceRedditPost, true},
		{SourceGdelt, false},
		{SourceOther, false},
		{ArticleSource("rss"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.source.IsShortSocial())
		})
	}
}

func TestArticleText_HasBody(t *testing.T) {
	assert.False(t, ArticleText{Title: "headline only"}.HasBody())
	assert.True(t, ArticleText{Body: "some text"}.HasBody())
}
