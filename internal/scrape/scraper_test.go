package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPage() string {
	return `<html><body><article><p>` + prosePara + `</p><p>` + prosePara + `</p></article></body></html>`
}

func newTestScraper() *Scraper {
	// High per-host rate so tests sharing 127.0.0.1 do not throttle each other.
	return NewScraper(Options{Timeout: 2 * time.Second, PerHostRPS: 1000})
}

func TestScraper_FetchExtractsArticle(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPage()))
	}))
	defer srv.Close()

	s := newTestScraper()
	text, err := s.Fetch(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	assert.Contains(t, text, "quarterly earnings")
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestScraper_FetchRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	s := newTestScraper()
	_, err := s.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 410")
}

func TestScraper_FetchRejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not": "html"}`))
	}))
	defer srv.Close()

	s := newTestScraper()
	_, err := s.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestScraper_FetchTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(testPage()))
	}))
	defer srv.Close()

	s := NewScraper(Options{Timeout: 50 * time.Millisecond, PerHostRPS: 1000})
	_, err := s.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestScraper_FetchFilteredURLNoNetworkCall(t *testing.T) {
	s := newTestScraper()

	_, err := s.Fetch(context.Background(), "https://example.com/report.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url filtered")
}

func TestScraper_FetchNoExtractableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>tiny</p></body></html>`))
	}))
	defer srv.Close()

	s := newTestScraper()
	_, err := s.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractable article text")
}

func TestScraper_FetchTruncatesToMaxContentLength(t *testing.T) {
	long := `<html><body><article><p>` + strings.Repeat(prosePara+" ", 50) + `</p></article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	s := NewScraper(Options{Timeout: 2 * time.Second, MaxContentLength: 300, PerHostRPS: 1000})
	text, err := s.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(text), 300)
}

func TestDecodeCharset(t *testing.T) {
	assert.Equal(t, "plain", decodeCharset([]byte("plain"), ""))
	assert.Equal(t, "plain", decodeCharset([]byte("plain"), "utf-8"))
	assert.Equal(t, "plain", decodeCharset([]byte("plain"), "no-such-charset"))

	// ISO-8859-1 é (0xE9) decodes to the UTF-8 é.
	got := decodeCharset([]byte{0x63, 0x61, 0x66, 0xE9}, "iso-8859-1")
	assert.Equal(t, "café", got)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int
	var mu = make(chan struct{}, 1)
	mu <- struct{}{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-mu
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu <- struct{}{}

		time.Sleep(50 * time.Millisecond)

		<-mu
		inFlight--
		mu <- struct{}{}

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage()))
	}))
	defer srv.Close()

	pool := NewPool(newTestScraper(), 2)

	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = pool.Fetch(context.Background(), srv.URL)
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}

	assert.LessOrEqual(t, peak, 2)
}

func TestPool_CancelledWhileWaiting(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage()))
	}))
	defer srv.Close()
	defer close(block)

	pool := NewPool(newTestScraper(), 1)

	// Occupy the only slot.
	go func() { _, _ = pool.Fetch(context.Background(), srv.URL) }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := pool.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScraper_FetchRetriesTransientStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage()))
	}))
	defer srv.Close()

	s := NewScraper(Options{Timeout: 2 * time.Second, PerHostRPS: 1000, MaxAttempts: 2})
	text, err := s.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "quarterly earnings")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestScraper_FetchDoesNotRetryPermanentStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewScraper(Options{Timeout: 2 * time.Second, PerHostRPS: 1000, MaxAttempts: 3})
	_, err := s.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestScraper_FetchSingleAttemptByDefault(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newTestScraper()
	_, err := s.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
