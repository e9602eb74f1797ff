package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTavilyURL = "https://api.tavily.com"

// TavilyClient implements Client against the Tavily search API.
type TavilyClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// TavilyOption configures the TavilyClient.
type TavilyOption func(*TavilyClient)

// WithTavilyBaseURL overrides the API endpoint, mainly for tests.
func WithTavilyBaseURL(url string) TavilyOption {
	return func(c *TavilyClient) {
		c.baseURL = url
	}
}

// WithTavilyHTTPClient replaces the underlying HTTP client.
func WithTavilyHTTPClient(client *http.Client) TavilyOption {
	return func(c *TavilyClient) {
		c.client = client
	}
}

// NewTavily creates a Tavily search client.
func NewTavily(apiKey string, opts ...TavilyOption) *TavilyClient {
	c := &TavilyClient{
		baseURL: defaultTavilyURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	SearchDepth       string `json:"search_depth,omitempty"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Answer  string         `json:"answer"`
	Results []tavilyResult `json:"results"`
}

// Search runs a Tavily search. When the API returns a synthesized answer it is
// prepended as a top result with score 1.0 so downstream stages treat it as a
// source.
func (c *TavilyClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	depth := string(opts.Depth)
	if depth == "" {
		depth = string(DepthBasic)
	}

	tReq := tavilyRequest{
		Query:         query,
		MaxResults:    opts.MaxResults,
		SearchDepth:   depth,
		IncludeAnswer: opts.IncludeAnswer,
	}

	body, err := json.Marshal(tReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tavily request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tavily api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tavily api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var tResp tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tResp); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	results := make([]Result, 0, len(tResp.Results)+1)
	if tResp.Answer != "" {
		results = append(results, Result{
			Title:   "AI Summary",
			URL:     "tavily://answer",
			Content: tResp.Answer,
			Score:   1.0,
		})
	}
	for _, r := range tResp.Results {
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}

	return results, nil
}

var _ Client = (*TavilyClient)(nil)
