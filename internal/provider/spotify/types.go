package spotify

// Spotify Web API response types.

// searchResponse is the top-level response from /v1/search?type=album.
type searchResponse struct {
	Albums albumPage `json:"albums"`
}

// albumPage is one page of album search results.
type albumPage struct {
	Items []albumItem `json:"items"`
	Total int         `json:"total"`
}

// albumItem is a single album in a search response.
type albumItem struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	AlbumType    string            `json:"album_type"`
	ReleaseDate  string            `json:"release_date"`
	Images       []image           `json:"images"`
	Artists      []artistRef       `json:"artists"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// image is an album cover at one resolution. Spotify orders these
// largest first.
type image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// artistRef is an artist credited on an album.
type artistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
