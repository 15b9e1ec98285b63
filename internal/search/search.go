package search

import "context"

// Result is a single search hit returned to the caller.
type Result struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	PersonID string `json:"personId"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}

// Query describes a search request. PersonIDs is the caller's visibility
// scope and must never be empty; an empty scope would match everything.
type Query struct {
	Text       string
	FilterType string // empty = all record types
	PersonIDs  []string
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Document is the denormalized form of a record pushed into the index.
type Document struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	PersonID string `json:"personId"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}
