package searchengine

import "time"

// Sort selects the ordering search results are returned in.
type Sort int

const (
	SortRelevance Sort = iota
	SortDate
)

// SearchResults is a page of matching documents plus the total match count.
type SearchResults struct {
	Count     int                    `json:"count"`
	Documents []SearchResultDocument `json:"documents"`
}

// SearchResultDocument is one matching document as returned to a caller.
type SearchResultDocument struct {
	Path       string    `json:"path"`
	Title      *string   `json:"title"`
	Tags       []string  `json:"tags"`
	WatchID    int64     `json:"watchId"`
	Highlight  *string   `json:"highlight"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}
