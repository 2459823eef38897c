package catalog

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
)

// ErrEmptyQuery is returned when a search query is empty after trimming.
// Handlers map it to a 400.
var ErrEmptyQuery = errors.New("search query is required")

// searchLimit is how many canonical releases one search returns.
const searchLimit = 12

// HistoryRecorder records executed searches. Recording is best-effort;
// failures never fail a search.
type HistoryRecorder interface {
	Record(ctx context.Context, query string, resultCount int) error
}

// Service is the storefront search facade: primary streaming-catalog
// search with eager cross-catalog matching, plus marketplace-backed
// featured and random shelves.
type Service struct {
	streaming StreamingClient
	market    MarketplaceClient
	matcher   *Matcher
	history   HistoryRecorder
	webRoot   string
	logger    *slog.Logger
}

// NewService creates the catalog service. history may be nil.
func NewService(streaming StreamingClient, market MarketplaceClient, matcher *Matcher, history HistoryRecorder, webRoot string, logger *slog.Logger) *Service {
	return &Service{
		streaming: streaming,
		market:    market,
		matcher:   matcher,
		history:   history,
		webRoot:   strings.TrimRight(webRoot, "/"),
		logger:    logger.With(slog.String("component", "catalog")),
	}
}

// Search resolves canonical releases for the query and attaches the best
// marketplace match to each. Match lookups fan out concurrently, one per
// candidate; the result order stays the primary provider's. An empty
// result set is a valid outcome, not an error.
func (s *Service) Search(ctx context.Context, query string) ([]Release, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	releases, err := s.streaming.SearchAlbums(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for i := range releases {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel := &releases[i]
			rel.Match = s.matcher.FindBestMatch(ctx, rel.Artist, rel.Title, rel.Year)
		}()
	}
	wg.Wait()

	if s.history != nil {
		if err := s.history.Record(ctx, query, len(releases)); err != nil {
			s.logger.Warn("recording search history", slog.String("error", err.Error()))
		}
	}

	return releases, nil
}

// Featured returns the marketplace's current hot vinyl releases.
func (s *Service) Featured(ctx context.Context) ([]Release, error) {
	candidates, err := s.market.SearchReleases(ctx, MarketQuery{
		Sort:      "hot",
		SortOrder: "desc",
		Format:    "vinyl",
		PerPage:   12,
	})
	if err != nil {
		return nil, err
	}
	return s.mapCandidates(candidates), nil
}

// Random returns a pseudo-random shelf of vinyl releases by sampling a
// random results page.
func (s *Service) Random(ctx context.Context) ([]Release, error) {
	candidates, err := s.market.SearchReleases(ctx, MarketQuery{
		Type:    "release",
		Format:  "vinyl",
		Page:    rand.IntN(100) + 1,
		PerPage: 8,
	})
	if err != nil {
		return nil, err
	}
	return s.mapCandidates(candidates), nil
}

func (s *Service) mapCandidates(candidates []MarketCandidate) []Release {
	releases := make([]Release, 0, len(candidates))
	for _, c := range candidates {
		artist, title := splitCandidateTitle(c.Title)
		year := c.Year
		if year == "" {
			year = "N/A"
		}
		typ := c.Type
		if typ == "" {
			typ = "release"
		}
		releases = append(releases, Release{
			ID:         c.ID,
			Title:      title,
			Artist:     artist,
			Year:       year,
			CoverImage: c.CoverImage,
			Thumb:      c.Thumb,
			SourceURL:  marketURL(s.webRoot, typ, c.ID),
		})
	}
	return releases
}

// splitCandidateTitle splits the marketplace's combined "Artist - Title"
// form. Titles without the separator stand in for both fields so the
// non-empty invariant holds.
func splitCandidateTitle(combined string) (artist, title string) {
	artist, title, ok := strings.Cut(combined, " - ")
	if !ok {
		return combined, combined
	}
	return strings.TrimSpace(artist), strings.TrimSpace(title)
}
