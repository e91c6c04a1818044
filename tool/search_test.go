package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProvider struct{ err error }

func (f *failingProvider) Search(context.Context, string, int) ([]SearchResult, error) {
	return nil, f.err
}

func TestSearchAdapter_ReturnsProviderResults(t *testing.T) {
	provider := NewStaticProvider()
	provider.Add("laptop",
		SearchResult{Title: "Dell XPS 15 review", URL: "https://example.com/xps", Snippet: "Great for editing"},
	)
	s := NewSearchAdapter(provider)

	res, err := s.Invoke(context.Background(), OpSearch, map[string]any{"query": "best laptop"})
	require.NoError(t, err)
	hits := res.([]SearchResult)
	require.Len(t, hits, 1)
	assert.Equal(t, "Dell XPS 15 review", hits[0].Title)
}

func TestSearchAdapter_RateLimited(t *testing.T) {
	// A bucket of one with negligible refill: second call must be rejected.
	s := NewSearchAdapter(NewStaticProvider(), func(o *SearchOptions) {
		o.Rate = 0.001
		o.Burst = 1
	})
	ctx := context.Background()

	_, err := s.Invoke(ctx, OpSearch, map[string]any{"query": "a"})
	require.NoError(t, err)

	_, err = s.Invoke(ctx, OpSearch, map[string]any{"query": "b"})
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeRateLimited))
}

func TestSearchAdapter_UpstreamError(t *testing.T) {
	s := NewSearchAdapter(&failingProvider{err: errors.New("503 from provider")})

	_, err := s.Invoke(context.Background(), OpSearch, map[string]any{"query": "anything"})
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeUpstreamError))
}

func TestSearchAdapter_UnknownOperation(t *testing.T) {
	s := NewSearchAdapter(NewStaticProvider())

	_, err := s.Invoke(context.Background(), "crawl", map[string]any{"query": "x"})
	assert.True(t, HasCode(err, CodeUnknownOperation))
}

func TestTokenBucket_Refills(t *testing.T) {
	b := NewTokenBucket(10, 1)
	now := time.Now()
	b.now = func() time.Time { return now }

	require.True(t, b.Allow())
	require.False(t, b.Allow())

	// 200ms at 10 tokens/sec restores two tokens, capped at burst 1.
	now = now.Add(200 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())
}
