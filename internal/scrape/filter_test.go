package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLFilter_Allowed(t *testing.T) {
	f := NewURLFilter()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://news.example.com/markets/story.html", true},
		{"http://example.com/article", true},
		{"https://example.com/report.pdf", false},
		{"https://example.com/chart.PNG", false},
		{"https://example.com/clip.mp4", false},
		{"https://twitter.com/user/status/1", false},
		{"https://x.com/user/status/1", false},
		{"https://www.youtube.com/watch?v=abc", false},
		{"https://old.reddit.com/r/stocks", false},
		{"ftp://example.com/file", false},
		{"not a url at all ://", false},
		{"/relative/path", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Allowed(tt.url), tt.url)
	}
}

func TestURLFilter_ExtraHosts(t *testing.T) {
	f := NewURLFilter("paywalled.example.com")

	assert.False(t, f.Allowed("https://paywalled.example.com/story"))
	assert.False(t, f.Allowed("https://amp.paywalled.example.com/story"))
	assert.True(t, f.Allowed("https://open.example.com/story"))
}

func TestURLFilter_SubdomainsOfBlockedHosts(t *testing.T) {
	f := NewURLFilter()

	assert.False(t, f.Allowed("https://mobile.twitter.com/user"))
	// A host that merely contains a blocked name is not a subdomain.
	assert.True(t, f.Allowed("https://notreddit.com/post"))
}
