package catalog

import (
	"context"
	"log/slog"
	"strings"
)

// Matcher cross-references a canonical release against the marketplace
// and selects the single best candidate, or none.
type Matcher struct {
	market  MarketplaceClient
	webRoot string
	logger  *slog.Logger
}

// NewMatcher creates a matcher. webRoot is the marketplace's public site
// root used to build candidate URLs.
func NewMatcher(market MarketplaceClient, webRoot string, logger *slog.Logger) *Matcher {
	return &Matcher{
		market:  market,
		webRoot: strings.TrimRight(webRoot, "/"),
		logger:  logger.With(slog.String("component", "matcher")),
	}
}

// FindBestMatch returns the best marketplace candidate for the given
// release, or nil when there is none. A failed cross-reference must never
// fail the primary search, so provider errors are logged and degrade to
// nil rather than propagating.
func (m *Matcher) FindBestMatch(ctx context.Context, artist, title, year string) *Match {
	artist = strings.TrimSpace(artist)
	title = strings.TrimSpace(title)
	if artist == "" || title == "" {
		// A wildcard query would be useless; skip the request entirely.
		return nil
	}

	q := MarketQuery{
		Query:   artist + " " + title,
		Format:  "album",
		PerPage: 12,
	}
	if year != "" && year != "N/A" {
		q.Year = year
	}

	results, err := m.market.SearchReleases(ctx, q)
	if err != nil {
		m.logger.Warn("cross-catalog lookup failed",
			slog.String("artist", artist),
			slog.String("title", title),
			slog.String("error", err.Error()))
		return nil
	}

	// Only master and release candidates participate.
	candidates := results[:0:0]
	for _, c := range results {
		if c.Type == "master" || c.Type == "release" {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	return m.toMatch(pickCandidate(candidates, artist, title))
}

// pickCandidate applies the ranking rules in strict priority order:
// a master whose title contains both substrings beats any candidate whose
// title contains both, which beats the provider's own first result.
func pickCandidate(candidates []MarketCandidate, artist, title string) MarketCandidate {
	for _, c := range candidates {
		if c.Type == "master" && titleContainsBoth(c.Title, artist, title) {
			return c
		}
	}
	for _, c := range candidates {
		if titleContainsBoth(c.Title, artist, title) {
			return c
		}
	}
	return candidates[0]
}

func titleContainsBoth(candidateTitle, artist, title string) bool {
	lower := strings.ToLower(candidateTitle)
	return strings.Contains(lower, strings.ToLower(artist)) &&
		strings.Contains(lower, strings.ToLower(title))
}

func (m *Matcher) toMatch(c MarketCandidate) *Match {
	matchType := MatchUnknown
	switch c.Type {
	case "master":
		matchType = MatchMaster
	case "release":
		matchType = MatchRelease
	}
	return &Match{
		ID:   c.ID,
		Type: matchType,
		URL:  marketURL(m.webRoot, string(matchType), c.ID),
	}
}

// marketURL builds the public marketplace URL for a candidate.
func marketURL(webRoot, typ, id string) string {
	return webRoot + "/" + typ + "/" + id
}
