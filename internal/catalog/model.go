// Package catalog implements the storefront core: canonical releases from
// the streaming catalog, cross-catalog matching against the marketplace,
// and per-format pricing aggregation.
package catalog

// Release is a canonical release produced by a streaming-catalog search.
// Artist and Title are always non-empty; Year is "N/A" when unknown.
type Release struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Year       string `json:"year"`
	CoverImage string `json:"cover_image,omitempty"`
	Thumb      string `json:"thumb,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
	Match      *Match `json:"match,omitempty"`
}

// MatchType classifies a marketplace match candidate.
type MatchType string

// Known match types.
const (
	MatchMaster  MatchType = "master"
	MatchRelease MatchType = "release"
	MatchUnknown MatchType = "unknown"
)

// Match is the single marketplace candidate selected for a release, if any.
type Match struct {
	ID   string    `json:"id"`
	Type MatchType `json:"type"`
	URL  string    `json:"url"`
}

// Listing is one for-sale copy on the marketplace. Amount is the raw
// price text as the marketplace returned it; parsing happens during
// aggregation so that malformed values can be excluded rather than
// coerced.
type Listing struct {
	Amount    string   `json:"amount"`
	Currency  string   `json:"currency"`
	Formats   []string `json:"formats"`
	Condition string   `json:"condition,omitempty"`
}

// PriceUnavailable is the sentinel emitted in place of a price when a
// format bucket has no parseable listings. It is distinct from any real
// price so it can never be mistaken for one.
const PriceUnavailable = "??.??"

// FormatSummary is the aggregated pricing for one physical format.
// Available counts listings in the bucket regardless of whether their
// prices parsed.
type FormatSummary struct {
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
	Currency    string `json:"currency,omitempty"`
	Condition   string `json:"condition,omitempty"`
	Available   int    `json:"available"`
}

// Pricing holds the per-format summaries for one release.
type Pricing struct {
	Vinyl FormatSummary `json:"vinyl"`
	CD    FormatSummary `json:"cd"`
}
