// Package spotify implements the streaming-catalog client. It
// authenticates with the client-credentials flow and maps album search
// results into canonical releases.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/resonate-app/resonate/internal/catalog"
	"github.com/resonate-app/resonate/internal/provider"
)

const (
	defaultBaseURL  = "https://api.spotify.com"
	defaultTokenURL = "https://accounts.spotify.com/api/token" //nolint:gosec // G101: endpoint URL, not a credential
)

// Client talks to the Spotify Web API. The bearer credential is cached
// and refreshed under a mutex, so concurrent callers that observe an
// expired credential await a single in-flight refresh instead of each
// issuing their own.
type Client struct {
	client   *http.Client
	limiter  *provider.RateLimiterMap
	settings *provider.SettingsService
	logger   *slog.Logger
	baseURL  string
	tokenURL string

	mu    sync.Mutex
	token *oauth2.Token
}

// New creates a Spotify client with the default endpoints.
func New(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger, timeout time.Duration) *Client {
	return NewWithBaseURL(limiter, settings, logger, timeout, defaultBaseURL, defaultTokenURL)
}

// NewWithBaseURL creates a Spotify client with custom endpoints (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger, timeout time.Duration, baseURL, tokenURL string) *Client {
	return &Client{
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
		settings: settings,
		logger:   logger.With(slog.String("provider", "spotify")),
		baseURL:  strings.TrimRight(baseURL, "/"),
		tokenURL: tokenURL,
	}
}

// SearchAlbums searches the album catalog and returns canonical releases
// in Spotify's relevance order. Items missing an artist or title are
// skipped.
func (c *Client) SearchAlbums(ctx context.Context, query string, limit int) ([]catalog.Release, error) {
	if err := c.limiter.Wait(ctx, provider.NameSpotify); err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameSpotify, Cause: fmt.Errorf("rate limiter: %w", err)}
	}

	if limit <= 0 {
		limit = 12
	}
	params := url.Values{
		"q":     {query},
		"type":  {"album"},
		"limit": {strconv.Itoa(limit)},
	}
	reqURL := c.baseURL + "/v1/search?" + params.Encode()

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]catalog.Release, 0, len(resp.Albums.Items))
	for _, item := range resp.Albums.Items {
		rel, ok := mapRelease(item)
		if !ok {
			continue
		}
		results = append(results, rel)
	}
	return results, nil
}

// doRequest issues an authenticated GET. On a 401 it invalidates the
// cached credential and retries exactly once with a fresh one; a second
// 401 surfaces as an authentication failure.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	tok, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err := c.issue(ctx, reqURL, tok)
	if err != nil {
		return nil, err
	}
	if status != http.StatusUnauthorized {
		return c.checkStatus(body, status)
	}

	// Upstream signaled credential expiry. Refresh and retry once.
	c.invalidate(tok)
	tok, err = c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err = c.issue(ctx, reqURL, tok)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, &provider.ErrAuthFailed{
			Provider: provider.NameSpotify,
			Cause:    errors.New("still unauthorized after credential refresh"),
		}
	}
	return c.checkStatus(body, status)
}

func (c *Client) issue(ctx context.Context, reqURL string, tok *oauth2.Token) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("User-Agent", "ResonateApp/1.0")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, provider.WrapTransportError(provider.NameSpotify, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, provider.WrapTransportError(provider.NameSpotify, err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) checkStatus(body []byte, status int) ([]byte, error) {
	if status < 200 || status > 299 {
		return nil, provider.Unavailable(provider.NameSpotify, status, body)
	}
	return body, nil
}

// getToken returns the cached bearer credential, exchanging client
// credentials for a fresh one when none is cached or the cached one has
// expired. The mutex is held across the exchange.
func (c *Client) getToken(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Valid() {
		return c.token, nil
	}

	clientID, err := c.settings.GetCredential(ctx, provider.NameSpotify, provider.FieldClientID)
	if err != nil {
		return nil, fmt.Errorf("getting client id: %w", err)
	}
	clientSecret, err := c.settings.GetCredential(ctx, provider.NameSpotify, provider.FieldClientSecret)
	if err != nil {
		return nil, fmt.Errorf("getting client secret: %w", err)
	}
	if clientID == "" || clientSecret == "" {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameSpotify}
	}

	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// Run the exchange through our own http.Client so the request
	// timeout applies to the token endpoint too.
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, c.client))
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, &provider.ErrAuthFailed{Provider: provider.NameSpotify, Cause: err}
		}
		return nil, provider.WrapTransportError(provider.NameSpotify, err)
	}

	c.token = tok
	return tok, nil
}

// invalidate clears the cached credential if it is still the one the
// caller used; a concurrent refresh may already have replaced it.
func (c *Client) invalidate(stale *oauth2.Token) {
	c.mu.Lock()
	if c.token == stale {
		c.token = nil
	}
	c.mu.Unlock()
}

// mapRelease converts an album item to a canonical release. Returns
// false for items that violate the artist/title invariant.
func mapRelease(item albumItem) (catalog.Release, bool) {
	if len(item.Artists) == 0 {
		return catalog.Release{}, false
	}
	artist := strings.TrimSpace(item.Artists[0].Name)
	title := strings.TrimSpace(item.Name)
	if artist == "" || title == "" {
		return catalog.Release{}, false
	}

	rel := catalog.Release{
		ID:        item.ID,
		Title:     title,
		Artist:    artist,
		Year:      releaseYear(item.ReleaseDate),
		SourceURL: item.ExternalURLs["spotify"],
	}
	if len(item.Images) > 0 {
		rel.CoverImage = item.Images[0].URL
		rel.Thumb = item.Images[0].URL
	}
	if len(item.Images) > 1 {
		rel.Thumb = item.Images[1].URL
	}
	return rel, true
}

// releaseYear extracts the 4-digit year from a Spotify release date
// ("2013", "2013-05", "2013-05-17"), defaulting to "N/A".
func releaseYear(date string) string {
	if len(date) < 4 {
		return "N/A"
	}
	year := date[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return "N/A"
		}
	}
	return year
}
