package tool

import (
	"context"
	"fmt"
	"strings"
)

// OpSearch is the single operation exposed by the search adapter.
const OpSearch = "search"

// SearchResult is one hit returned by a search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider abstracts the upstream web-search capability. Providers are
// expected to be slow and fallible; the adapter wraps their failures as
// CodeUpstreamError.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// SearchAdapter wraps a SearchProvider behind the uniform Adapter contract,
// guarded by a process-wide token bucket. When the bucket is exhausted the
// invocation fails fast with CodeRateLimited instead of queueing.
type SearchAdapter struct {
	provider   SearchProvider
	limiter    *TokenBucket
	maxResults int
}

// SearchOptions configures the search adapter.
type SearchOptions struct {
	// Rate is the sustained request rate in requests per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
	// MaxResults caps the hits returned per invocation.
	MaxResults int
}

// NewSearchAdapter constructs a rate-limited search adapter.
func NewSearchAdapter(provider SearchProvider, optFns ...func(o *SearchOptions)) *SearchAdapter {
	opts := SearchOptions{Rate: 1, Burst: 5, MaxResults: 5}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SearchAdapter{
		provider:   provider,
		limiter:    NewTokenBucket(opts.Rate, opts.Burst),
		maxResults: opts.MaxResults,
	}
}

// Name implements Adapter.
func (s *SearchAdapter) Name() string { return "search" }

// Invoke implements Adapter.
func (s *SearchAdapter) Invoke(ctx context.Context, operation string, args map[string]any) (any, error) {
	if operation != OpSearch {
		return nil, NewToolError(s.Name(), operation, "operation not supported", CodeUnknownOperation)
	}
	query, err := stringArg(s.Name(), operation, args, "query")
	if err != nil {
		return nil, err
	}
	if !s.limiter.Allow() {
		return nil, NewToolError(s.Name(), operation, "search rate limit exhausted", CodeRateLimited)
	}

	results, err := s.provider.Search(ctx, query, s.maxResults)
	if err != nil {
		return nil, NewToolError(s.Name(), operation, fmt.Sprintf("provider failure: %v", err), CodeUpstreamError)
	}
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}
	return results, nil
}

// StaticProvider is a canned SearchProvider for tests and offline demos. Hits
// are matched by substring against registered queries.
type StaticProvider struct {
	entries map[string][]SearchResult
}

// NewStaticProvider constructs an empty static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{entries: make(map[string][]SearchResult)}
}

// Add registers canned results for queries containing the given substring.
func (p *StaticProvider) Add(substring string, results ...SearchResult) {
	p.entries[strings.ToLower(substring)] = results
}

// Search implements SearchProvider.
func (p *StaticProvider) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	for sub, results := range p.entries {
		if strings.Contains(q, sub) {
			if len(results) > limit {
				results = results[:limit]
			}
			return results, nil
		}
	}
	return nil, nil
}
