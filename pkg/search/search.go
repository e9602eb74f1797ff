// Package search provides web search for the research pipeline.
package search

import "context"

// Depth selects how thorough a search should be.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// Result is a single web search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Options controls a search request.
type Options struct {
	MaxResults    int
	Depth         Depth
	IncludeAnswer bool
}

// Client defines the interface for web search backends.
type Client interface {
	// Search runs a web search and returns ranked results.
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}
