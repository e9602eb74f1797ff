package search

import (
	"context"
	"fmt"
)

// MockClient is a testing implementation of Client.
type MockClient struct {
	Results    []Result
	Err        error
	SearchFunc func(ctx context.Context, query string, opts Options) ([]Result, error)
	// Queries records every query received, in order.
	Queries []string
}

func (m *MockClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	m.Queries = append(m.Queries, query)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, opts)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}

// FailingMockClient always fails.
type FailingMockClient struct {
	Err error
}

func (f *FailingMockClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if f.Err == nil {
		return nil, fmt.Errorf("mock search error")
	}
	return nil, f.Err
}

var (
	_ Client = (*MockClient)(nil)
	_ Client = (*FailingMockClient)(nil)
)
