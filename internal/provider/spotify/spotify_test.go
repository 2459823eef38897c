package spotify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/resonate-app/resonate/internal/encryption"
	"github.com/resonate-app/resonate/internal/provider"
	_ "modernc.org/sqlite"
)

func setupTest(t *testing.T) (*provider.RateLimiterMap, *provider.SettingsService) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TEXT NOT NULL DEFAULT (datetime('now')))`)
	if err != nil {
		t.Fatalf("creating settings table: %v", err)
	}
	enc, _, _ := encryption.NewEncryptor("")
	settings := provider.NewSettingsService(db, enc)
	settings.SetOverride(provider.NameSpotify, provider.FieldClientID, "test-id")
	settings.SetOverride(provider.NameSpotify, provider.FieldClientSecret, "test-secret")
	return provider.NewRateLimiterMap(), settings
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// tokenServer issues sequentially numbered bearer tokens and counts how
// many times it was hit.
type tokenServer struct {
	hits atomic.Int64
}

func (ts *tokenServer) handler(w http.ResponseWriter, r *http.Request) {
	n := ts.hits.Add(1)
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":3600}`, n)
}

func TestSearchAlbums(t *testing.T) {
	limiter, settings := setupTest(t)
	ts := &tokenServer{}
	tokenSrv := httptest.NewServer(http.HandlerFunc(ts.handler))
	defer tokenSrv.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.URL.Query().Get("type"); got != "album" {
			t.Errorf("type param = %q, want album", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(loadFixture(t, "search_ok_computer.json"))
	}))
	defer srv.Close()
	c := NewWithBaseURL(limiter, settings, testLogger(), 5*time.Second, srv.URL, tokenSrv.URL)

	results, err := c.SearchAlbums(context.Background(), "ok computer", 12)
	if err != nil {
		t.Fatalf("SearchAlbums: %v", err)
	}
	// The artistless item is dropped.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	first := results[0]
	if first.Artist != "Radiohead" || first.Title != "OK Computer" {
		t.Errorf("first result = %s / %s", first.Artist, first.Title)
	}
	if first.Year != "1997" {
		t.Errorf("year = %s, want 1997", first.Year)
	}
	if first.CoverImage != "https://i.scdn.co/image/large" {
		t.Errorf("cover = %s", first.CoverImage)
	}
	if first.Thumb != "https://i.scdn.co/image/medium" {
		t.Errorf("thumb = %s", first.Thumb)
	}
	// A single image serves as both cover and thumb.
	if results[1].Thumb != "https://i.scdn.co/image/oknotok-large" {
		t.Errorf("thumb = %s", results[1].Thumb)
	}
}

func TestSearchAlbumsRetriesOnceOnUnauthorized(t *testing.T) {
	limiter, settings := setupTest(t)
	ts := &tokenServer{}
	tokenSrv := httptest.NewServer(http.HandlerFunc(ts.handler))
	defer tokenSrv.Close()
	var searchHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if searchHits.Add(1) == 1 {
			// The first token is treated as expired upstream.
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") != "Bearer token-2" {
			t.Errorf("retry used %q, want the refreshed token", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(loadFixture(t, "search_ok_computer.json"))
	}))
	defer srv.Close()
	c := NewWithBaseURL(limiter, settings, testLogger(), 5*time.Second, srv.URL, tokenSrv.URL)

	results, err := c.SearchAlbums(context.Background(), "ok computer", 12)
	if err != nil {
		t.Fatalf("SearchAlbums: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if got := searchHits.Load(); got != 2 {
		t.Errorf("search endpoint hit %d times, want 2", got)
	}
	if got := ts.hits.Load(); got != 2 {
		t.Errorf("token endpoint hit %d times, want 2", got)
	}
}

func TestSearchAlbumsAuthFailedAfterRetry(t *testing.T) {
	limiter, settings := setupTest(t)
	ts := &tokenServer{}
	tokenSrv := httptest.NewServer(http.HandlerFunc(ts.handler))
	defer tokenSrv.Close()
	var searchHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searchHits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := NewWithBaseURL(limiter, settings, testLogger(), 5*time.Second, srv.URL, tokenSrv.URL)

	_, err := c.SearchAlbums(context.Background(), "ok computer", 12)
	var authErr *provider.ErrAuthFailed
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	// Exactly one retry, never a loop.
	if got := searchHits.Load(); got != 2 {
		t.Errorf("search endpoint hit %d times, want 2", got)
	}
}

func TestTokenExchangeSingleFlight(t *testing.T) {
	limiter, settings := setupTest(t)
	ts := &tokenServer{}
	tokenSrv := httptest.NewServer(http.HandlerFunc(ts.handler))
	defer tokenSrv.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(loadFixture(t, "search_ok_computer.json"))
	}))
	defer srv.Close()
	c := NewWithBaseURL(limiter, settings, testLogger(), 5*time.Second, srv.URL, tokenSrv.URL)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.SearchAlbums(context.Background(), "ok computer", 12); err != nil {
				t.Errorf("SearchAlbums: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := ts.hits.Load(); got != 1 {
		t.Errorf("token endpoint hit %d times, want 1 shared exchange", got)
	}
}

func TestSearchAlbumsCredentialsMissing(t *testing.T) {
	limiter, _ := setupTest(t)
	// A settings service with nothing configured for Spotify.
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TEXT NOT NULL DEFAULT (datetime('now')))`)
	if err != nil {
		t.Fatalf("creating settings table: %v", err)
	}
	enc, _, _ := encryption.NewEncryptor("")
	empty := provider.NewSettingsService(db, enc)
	c := NewWithBaseURL(limiter, empty, testLogger(), 5*time.Second, "http://unused.invalid", "http://unused.invalid/token")

	_, err = c.SearchAlbums(context.Background(), "ok computer", 12)
	var reqErr *provider.ErrAuthRequired
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want ErrAuthRequired", err)
	}
}

func TestSearchAlbumsUpstreamError(t *testing.T) {
	limiter, settings := setupTest(t)
	ts := &tokenServer{}
	tokenSrv := httptest.NewServer(http.HandlerFunc(ts.handler))
	defer tokenSrv.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream maintenance"))
	}))
	defer srv.Close()
	c := NewWithBaseURL(limiter, settings, testLogger(), 5*time.Second, srv.URL, tokenSrv.URL)

	_, err := c.SearchAlbums(context.Background(), "ok computer", 12)
	var unavailErr *provider.ErrUnavailable
	if !errors.As(err, &unavailErr) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if unavailErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", unavailErr.StatusCode)
	}
}

func TestSearchAlbumsTimeout(t *testing.T) {
	limiter, settings := setupTest(t)
	ts := &tokenServer{}
	tokenSrv := httptest.NewServer(http.HandlerFunc(ts.handler))
	defer tokenSrv.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()
	c := NewWithBaseURL(limiter, settings, testLogger(), 100*time.Millisecond, srv.URL, tokenSrv.URL)

	_, err := c.SearchAlbums(context.Background(), "ok computer", 12)
	var timeoutErr *provider.ErrTimeout
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}
