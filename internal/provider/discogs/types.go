package discogs

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Discogs API response types.

// searchResponse is the top-level response from the database search endpoint.
type searchResponse struct {
	Results    []searchResult `json:"results"`
	Pagination pagination     `json:"pagination"`
}

// searchResult represents a single database search hit.
type searchResult struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	Type       string      `json:"type"`
	Year       flexString  `json:"year"`
	Thumb      string      `json:"thumb"`
	CoverImage string      `json:"cover_image"`
	Formats    flexStrings `json:"format"`
}

// pagination holds paging info.
type pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// listingsResponse is the top-level response from the marketplace search
// endpoint.
type listingsResponse struct {
	Listings []listingItem `json:"listings"`
}

// listingItem is one for-sale listing.
type listingItem struct {
	Price           listingPrice `json:"price"`
	Condition       string       `json:"condition"`
	SleeveCondition string       `json:"sleeve_condition"`
	Formats         flexStrings  `json:"format"`
}

// listingPrice carries the asking price. Older payloads use "value",
// newer ones "amount"; both are kept as raw text so malformed amounts
// survive decoding and can be rejected during aggregation.
type listingPrice struct {
	Amount   flexString `json:"amount"`
	Value    flexString `json:"value"`
	Currency string     `json:"currency"`
}

// raw returns the price amount text, whichever field carried it.
func (p listingPrice) raw() string {
	if p.Amount != "" {
		return string(p.Amount)
	}
	return string(p.Value)
}

// flexString decodes a JSON string or number into a string, keeping the
// original text for anything else.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	// Numbers (and anything malformed) pass through as raw text.
	*f = flexString(data)
	return nil
}

// flexStrings decodes a JSON string or array of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*f = items
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = []string{s}
	return nil
}

// itoa formats a Discogs numeric ID.
func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
