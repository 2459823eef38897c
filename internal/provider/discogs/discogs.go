// Package discogs implements the marketplace client. It authenticates
// with a static personal access token and exposes database search plus
// marketplace listings lookups.
package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/resonate-app/resonate/internal/catalog"
	"github.com/resonate-app/resonate/internal/provider"
)

const defaultBaseURL = "https://api.discogs.com"

// Client talks to the Discogs API. The token does not expire in normal
// operation, so there is no refresh path.
type Client struct {
	client   *http.Client
	limiter  *provider.RateLimiterMap
	settings *provider.SettingsService
	logger   *slog.Logger
	baseURL  string
}

// New creates a Discogs client with the default base URL.
func New(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger, timeout time.Duration) *Client {
	return NewWithBaseURL(limiter, settings, logger, timeout, defaultBaseURL)
}

// NewWithBaseURL creates a Discogs client with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger, timeout time.Duration, baseURL string) *Client {
	return &Client{
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
		settings: settings,
		logger:   logger.With(slog.String("provider", "discogs")),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// SearchReleases queries the database search endpoint.
func (c *Client) SearchReleases(ctx context.Context, q catalog.MarketQuery) ([]catalog.MarketCandidate, error) {
	params := url.Values{}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Artist != "" {
		params.Set("artist", q.Artist)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Format != "" {
		params.Set("format", q.Format)
	}
	if q.Year != "" {
		params.Set("year", q.Year)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.SortOrder != "" {
		params.Set("sort_order", q.SortOrder)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}

	body, err := c.doRequest(ctx, c.baseURL+"/database/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	candidates := make([]catalog.MarketCandidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		candidates = append(candidates, catalog.MarketCandidate{
			ID:         itoa(r.ID),
			Type:       r.Type,
			Title:      r.Title,
			Year:       string(r.Year),
			Thumb:      r.Thumb,
			CoverImage: r.CoverImage,
		})
	}
	return candidates, nil
}

// ListingsForRelease fetches for-sale listings for a single release.
func (c *Client) ListingsForRelease(ctx context.Context, id string) ([]catalog.Listing, error) {
	return c.listings(ctx, "release_id", id)
}

// ListingsForMaster fetches representative listings for a master release.
func (c *Client) ListingsForMaster(ctx context.Context, id string) ([]catalog.Listing, error) {
	return c.listings(ctx, "master_id", id)
}

func (c *Client) listings(ctx context.Context, idParam, id string) ([]catalog.Listing, error) {
	params := url.Values{
		idParam:      {id},
		"format":     {"Vinyl,CD"},
		"sort":       {"price"},
		"sort_order": {"asc"},
		"per_page":   {"100"},
	}

	body, err := c.doRequest(ctx, c.baseURL+"/marketplace/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp listingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing listings response: %w", err)
	}

	listings := make([]catalog.Listing, 0, len(resp.Listings))
	for _, item := range resp.Listings {
		listings = append(listings, catalog.Listing{
			Amount:    item.Price.raw(),
			Currency:  item.Price.Currency,
			Formats:   item.Formats,
			Condition: item.Condition,
		})
	}
	return listings, nil
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	token, err := c.settings.GetCredential(ctx, provider.NameDiscogs, provider.FieldToken)
	if err != nil {
		return "", fmt.Errorf("getting API token: %w", err)
	}
	if token == "" {
		return "", &provider.ErrAuthRequired{Provider: provider.NameDiscogs}
	}
	return token, nil
}

func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx, provider.NameDiscogs); err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameDiscogs, Cause: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Discogs token="+token)
	req.Header.Set("User-Agent", "ResonateApp/1.0")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, provider.WrapTransportError(provider.NameDiscogs, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.WrapTransportError(provider.NameDiscogs, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &provider.ErrAuthFailed{
			Provider: provider.NameDiscogs,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, provider.Unavailable(provider.NameDiscogs, resp.StatusCode, body)
	}

	return body, nil
}
