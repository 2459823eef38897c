package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Aggregator compresses marketplace listings for one release into
// per-format pricing summaries.
type Aggregator struct {
	market MarketplaceClient
	logger *slog.Logger
}

// NewAggregator creates a pricing aggregator.
func NewAggregator(market MarketplaceClient, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		market: market,
		logger: logger.With(slog.String("component", "pricing")),
	}
}

// Summarize fetches all listings for the given id and reduces them to
// vinyl and CD summaries. A release-level lookup is attempted first; ids
// that identify a master fall back to a master-level search. If both
// fail, the error is returned for the caller to decide; a pricing
// failure must never take down the rest of the page.
func (a *Aggregator) Summarize(ctx context.Context, id string) (*Pricing, error) {
	listings, err := a.market.ListingsForRelease(ctx, id)
	if err != nil {
		a.logger.Debug("release-level listings lookup failed, trying master",
			slog.String("id", id),
			slog.String("error", err.Error()))
		listings, err = a.market.ListingsForMaster(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetching listings for %s: %w", id, err)
		}
	}

	return &Pricing{
		Vinyl: summarizeBucket(filterListings(listings, isVinyl)),
		CD:    summarizeBucket(filterListings(listings, isCD)),
	}, nil
}

// Bucket predicates are independent: an ambiguous listing (a boxed set
// carrying both formats) may legitimately land in both buckets.

func isVinyl(l Listing) bool {
	for _, tok := range l.Formats {
		lower := strings.ToLower(tok)
		if strings.Contains(lower, "vinyl") || lower == "lp" {
			return true
		}
	}
	return false
}

func isCD(l Listing) bool {
	for _, tok := range l.Formats {
		if strings.Contains(strings.ToLower(tok), "cd") {
			return true
		}
	}
	return false
}

func filterListings(listings []Listing, keep func(Listing) bool) []Listing {
	var out []Listing
	for _, l := range listings {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// summarizeBucket reduces one format bucket. Available reflects every
// listing in the bucket; price statistics use only the parseable ones.
func summarizeBucket(bucket []Listing) FormatSummary {
	summary := FormatSummary{
		LowestPrice: PriceUnavailable,
		MedianPrice: PriceUnavailable,
		Available:   len(bucket),
	}
	if len(bucket) == 0 {
		return summary
	}
	summary.Currency = bucket[0].Currency

	type pricedListing struct {
		cents   int64
		listing Listing
	}
	var priced []pricedListing
	for _, l := range bucket {
		cents, err := ParseAmount(l.Amount)
		if err != nil {
			continue
		}
		priced = append(priced, pricedListing{cents: cents, listing: l})
	}
	if len(priced) == 0 {
		// Copies exist but no price is readable; the sentinel stands.
		return summary
	}

	sort.SliceStable(priced, func(i, j int) bool { return priced[i].cents < priced[j].cents })

	summary.LowestPrice = FormatAmount(priced[0].cents)
	summary.Condition = priced[0].listing.Condition
	// Even-length buckets take the upper of the two central values.
	summary.MedianPrice = FormatAmount(priced[len(priced)/2].cents)
	return summary
}
