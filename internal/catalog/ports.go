package catalog

import "context"

// StreamingClient is the primary catalog: album search against the
// streaming metadata provider.
type StreamingClient interface {
	SearchAlbums(ctx context.Context, query string, limit int) ([]Release, error)
}

// MarketQuery is a marketplace database search.
type MarketQuery struct {
	Query     string
	Artist    string
	Type      string
	Format    string
	Year      string
	Sort      string
	SortOrder string
	Page      int
	PerPage   int
}

// MarketCandidate is a single hit from a marketplace database search.
// Type is the raw candidate type as the marketplace reported it.
type MarketCandidate struct {
	ID         string
	Type       string
	Title      string
	Year       string
	Thumb      string
	CoverImage string
}

// MarketplaceClient is the secondary catalog: release search and
// for-sale listings on the physical-media marketplace.
type MarketplaceClient interface {
	SearchReleases(ctx context.Context, q MarketQuery) ([]MarketCandidate, error)
	ListingsForRelease(ctx context.Context, id string) ([]Listing, error)
	ListingsForMaster(ctx context.Context, id string) ([]Listing, error)
}
