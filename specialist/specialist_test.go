package specialist

import (
	"context"
	"errors"
	"testing"

	"github.com/deskmesh/deskmesh/internal/testutil"
	"github.com/deskmesh/deskmesh/model"
	"github.com/deskmesh/deskmesh/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneral_Execute(t *testing.T) {
	m := model.NewMockModel("Happy to help!")
	m.AddResponse("hi", "Hello! How can I help you today?")
	g := NewGeneral(m)

	res, err := g.Execute(context.Background(), "Hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you today?", res.Text)
	assert.Positive(t, res.Tokens)
	assert.Equal(t, CapabilityPureConversation, g.Capability())
}

func TestGeneral_ModelFailurePropagates(t *testing.T) {
	m := model.NewMockModel("ok")
	m.FailWith(errors.New("provider down"))
	g := NewGeneral(m)

	_, err := g.Execute(context.Background(), "Hi", nil)
	assert.Error(t, err)
}

func TestProduct_CatalogHit(t *testing.T) {
	p := NewProduct(tool.NewCatalogAdapter(), tool.NewSearchAdapter(tool.NewStaticProvider()))

	res, err := p.Execute(context.Background(), "Do you have the iPhone 15 Pro?", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "iPhone 15 Pro")
	assert.Contains(t, res.Text, "$999.00")
	assert.Contains(t, res.Text, "low stock")
	assert.Equal(t, CapabilityToolAugmented, p.Capability())
}

func TestProduct_SearchFallback(t *testing.T) {
	provider := tool.NewStaticProvider()
	provider.Add("mechanical keyboard",
		tool.SearchResult{Title: "Keychron K8", URL: "https://example.com/k8", Snippet: "Popular wireless board"},
	)
	p := NewProduct(tool.NewCatalogAdapter(), tool.NewSearchAdapter(provider))

	res, err := p.Execute(context.Background(), "any good mechanical keyboard?", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Keychron K8")
}

func TestProduct_SearchFailurePropagates(t *testing.T) {
	// Exhausted limiter makes the fallback fail with RATE_LIMITED, which must
	// surface to the coordinator rather than degrade silently.
	p := NewProduct(tool.NewCatalogAdapter(), tool.NewSearchAdapter(tool.NewStaticProvider(), func(o *tool.SearchOptions) {
		o.Rate = 0.001
		o.Burst = 1
	}))
	ctx := context.Background()

	_, err := p.Execute(ctx, "unknown gadget one", nil)
	require.NoError(t, err)

	_, err = p.Execute(ctx, "unknown gadget two", nil)
	require.Error(t, err)
	assert.True(t, tool.HasCode(err, tool.CodeRateLimited))
}

func TestCalculation_Execute(t *testing.T) {
	c := NewCalculation(tool.NewSandboxAdapter())

	res, err := c.Execute(context.Background(), "What's 1299 plus 8% tax?", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "1402.92")
	assert.Equal(t, CapabilityToolAugmented, c.Capability())
}

func TestCalculation_FollowUpUsesHistory(t *testing.T) {
	c := NewCalculation(tool.NewSandboxAdapter())
	history := testutil.NewConversationBuilder().
		User("What's the price of SKU-42?").
		Specialist(ProductName, "The Dell XPS 15 is available for $1299.00. It is in stock (45 units available).").
		Build()

	res, err := c.Execute(context.Background(), "plus 8% tax", history)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "1402.92")
}

func TestCalculation_NoMath(t *testing.T) {
	c := NewCalculation(tool.NewSandboxAdapter())

	res, err := c.Execute(context.Background(), "thanks for the help", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "couldn't find a calculation")
}

func TestExtractExpression(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"What's 2 plus 2?", "2 + 2"},
		{"calculate 10 divided by 4", "10 / 4"},
		{"1299 * 1.08", "1299 * 1.08"},
		{"what is 8% of 250", "(8 / 100) * 250"},
		{"$1,299 plus 8% tax", "1299 * (1 + 8 / 100)"},
		{"hello there", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractExpression(tt.query, nil))
		})
	}
}
