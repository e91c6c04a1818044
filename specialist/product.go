package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/model"
	"github.com/deskmesh/deskmesh/tool"
)

// Product answers catalog and availability questions. It tries the catalog
// first (authoritative prices and stock) and falls back to web search for
// products the catalog does not carry. Responses are composed
// deterministically from tool facts so prices never depend on model output.
type Product struct {
	catalog tool.Adapter
	search  tool.Adapter
}

// NewProduct constructs the product specialist around the catalog and search
// adapters.
func NewProduct(catalog, search tool.Adapter) *Product {
	return &Product{catalog: catalog, search: search}
}

// Name implements Specialist.
func (p *Product) Name() string { return ProductName }

// Capability implements Specialist.
func (p *Product) Capability() Capability { return CapabilityToolAugmented }

// Execute implements Specialist.
func (p *Product) Execute(ctx context.Context, query string, history []core.Message) (*Result, error) {
	res, err := p.catalog.Invoke(ctx, tool.OpGetProduct, map[string]any{"name": query})
	if err == nil {
		if product, ok := res.(tool.Product); ok {
			return p.describe(ctx, product)
		}
		return nil, fmt.Errorf("product specialist: unexpected catalog payload %T", res)
	}
	if !tool.HasCode(err, tool.CodeNotFound) {
		return nil, fmt.Errorf("product specialist: catalog lookup: %w", err)
	}

	// Catalog miss: fall back to web search.
	hits, err := p.search.Invoke(ctx, tool.OpSearch, map[string]any{"query": query})
	if err != nil {
		return nil, fmt.Errorf("product specialist: search fallback: %w", err)
	}
	results, _ := hits.([]tool.SearchResult)
	if len(results) == 0 {
		text := "I couldn't find that product in our catalog. Could you tell me a bit more about what you're looking for?"
		return &Result{Text: text, Tokens: model.EstimateTokens(query + text)}, nil
	}

	var b strings.Builder
	b.WriteString("I couldn't find that in our catalog, but here is what I found elsewhere:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", r.Title, r.Snippet, r.URL)
	}
	text := b.String()
	return &Result{Text: text, Tokens: model.EstimateTokens(query + text)}, nil
}

// describe composes the catalog answer: price, description and a stock
// message from check_inventory.
func (p *Product) describe(ctx context.Context, product tool.Product) (*Result, error) {
	var stockMsg string
	inv, err := p.catalog.Invoke(ctx, tool.OpCheckInventory, map[string]any{"name": product.SKU})
	if err == nil {
		if status, ok := inv.(*tool.InventoryStatus); ok {
			stockMsg = status.Message
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The %s is available for $%.2f. %s", product.Name, product.Price, product.Description)
	if stockMsg != "" {
		b.WriteString(" ")
		b.WriteString(stockMsg)
	}
	text := b.String()
	return &Result{Text: text, Tokens: model.EstimateTokens(text)}, nil
}
