// Package scrape acquires readable article text for documents that arrive
// with a URL but no body. URLs are pre-filtered, fetched behind a bounded
// worker pool with per-host rate limiting, and reduced to plaintext through
// a chain of extraction strategies.
package scrape

import (
	"net/url"
	"path"
	"strings"
)

// blockedExtensions are file types that never contain extractable article
// text worth a fetch.
var blockedExtensions = map[string]struct{}{
	".pdf":  {},
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".svg":  {},
	".mp3":  {},
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".webm": {},
	".zip":  {},
	".gz":   {},
}

// blockedHosts are social and video platforms whose pages are login walls
// or player shells rather than articles.
var blockedHosts = []string{
	"twitter.com",
	"x.com",
	"reddit.com",
	"redd.it",
	"youtube.com",
	"youtu.be",
	"facebook.com",
	"instagram.com",
	"tiktok.com",
	"twitch.tv",
	"discord.com",
	"imgur.com",
}

// URLFilter rejects URLs before any network call is made.
type URLFilter struct {
	extraHosts []string
}

// NewURLFilter creates a filter with the built-in blocklists plus any
// additional blocked hosts.
func NewURLFilter(extraHosts ...string) *URLFilter {
	return &URLFilter{extraHosts: extraHosts}
}

// Allowed reports whether the URL is worth fetching. Unparseable and
// non-HTTP URLs are rejected.
func (f *URLFilter) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if _, blocked := blockedExtensions[ext]; blocked {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, blocked := range blockedHosts {
		if hostMatches(host, blocked) {
			return false
		}
	}
	for _, blocked := range f.extraHosts {
		if hostMatches(host, strings.ToLower(blocked)) {
			return false
		}
	}
	return true
}

// hostMatches reports whether host equals blocked or is a subdomain of it.
func hostMatches(host, blocked string) bool {
	return host == blocked || strings.HasSuffix(host, "."+blocked)
}
