package tool

import (
	"context"
	"fmt"
	"strings"
)

// Catalog operation names.
const (
	OpGetProduct     = "get_product"
	OpSearchProducts = "search_products"
	OpCheckInventory = "check_inventory"
)

const lowStockThreshold = 10

// Product is a single catalog entry. SKU doubles as the stable lookup key.
type Product struct {
	SKU             string            `json:"sku"`
	Name            string            `json:"name"`
	Category        string            `json:"category"`
	Price           float64           `json:"price"`
	Stock           int               `json:"stock"`
	Specs           map[string]string `json:"specs,omitempty"`
	Description     string            `json:"description"`
	Tags            []string          `json:"tags,omitempty"`
	ExpectedRestock string            `json:"expected_restock,omitempty"`
}

// InventoryStatus summarizes stock for a single product.
type InventoryStatus struct {
	SKU     string `json:"sku"`
	Name    string `json:"name"`
	Stock   int    `json:"stock"`
	Status  string `json:"status"` // "In Stock", "Low Stock", "Out of Stock"
	Message string `json:"message"`
}

// CatalogResult is the payload returned by search_products.
type CatalogResult struct {
	Count    int       `json:"count"`
	Products []Product `json:"products"`
}

// CatalogAdapter answers synchronous product questions against a fixed
// catalog. Lookups that match nothing fail with CodeNotFound rather than
// returning an empty success; search results are capped at MaxResults.
type CatalogAdapter struct {
	products   []Product
	maxResults int
}

// CatalogOptions configures the catalog adapter.
type CatalogOptions struct {
	// Products overrides the built-in seed catalog.
	Products []Product
	// MaxResults caps search_products responses.
	MaxResults int
}

// NewCatalogAdapter constructs a catalog adapter, defaulting to the seed
// catalog and a result cap of 5.
func NewCatalogAdapter(optFns ...func(o *CatalogOptions)) *CatalogAdapter {
	opts := CatalogOptions{Products: seedCatalog(), MaxResults: 5}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &CatalogAdapter{products: opts.Products, maxResults: opts.MaxResults}
}

// Name implements Adapter.
func (c *CatalogAdapter) Name() string { return "catalog" }

// Invoke implements Adapter.
func (c *CatalogAdapter) Invoke(ctx context.Context, operation string, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch operation {
	case OpGetProduct:
		return c.getProduct(operation, args)
	case OpSearchProducts:
		return c.searchProducts(args)
	case OpCheckInventory:
		return c.checkInventory(operation, args)
	default:
		return nil, NewToolError(c.Name(), operation, "operation not supported", CodeUnknownOperation)
	}
}

func (c *CatalogAdapter) getProduct(op string, args map[string]any) (any, error) {
	name, err := stringArg(c.Name(), op, args, "name")
	if err != nil {
		return nil, err
	}
	if p, ok := c.find(name); ok {
		return p, nil
	}
	return nil, NewToolError(c.Name(), op, fmt.Sprintf("product %q not found", name), CodeNotFound)
}

func (c *CatalogAdapter) searchProducts(args map[string]any) (any, error) {
	category, _ := args["category"].(string)
	maxPrice, hasMax := toFloat(args["max_price"])
	minStock := 1
	if v, ok := toFloat(args["min_stock"]); ok {
		minStock = int(v)
	}
	var tags []string
	switch v := args["tags"].(type) {
	case []string:
		tags = v
	case []any:
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
	}

	var results []Product
	for _, p := range c.products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if hasMax && p.Price > maxPrice {
			continue
		}
		if p.Stock < minStock {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(p, tags) {
			continue
		}
		results = append(results, p)
		if len(results) == c.maxResults {
			break
		}
	}
	return &CatalogResult{Count: len(results), Products: results}, nil
}

func (c *CatalogAdapter) checkInventory(op string, args map[string]any) (any, error) {
	name, err := stringArg(c.Name(), op, args, "name")
	if err != nil {
		return nil, err
	}
	p, ok := c.find(name)
	if !ok {
		return nil, NewToolError(c.Name(), op, fmt.Sprintf("product %q not found in inventory", name), CodeNotFound)
	}

	status := &InventoryStatus{SKU: p.SKU, Name: p.Name, Stock: p.Stock}
	switch {
	case p.Stock == 0:
		status.Status = "Out of Stock"
		status.Message = fmt.Sprintf("%s is currently out of stock.", p.Name)
		if p.ExpectedRestock != "" {
			status.Message += fmt.Sprintf(" Expected restock: %s", p.ExpectedRestock)
		}
	case p.Stock < lowStockThreshold:
		status.Status = "Low Stock"
		status.Message = fmt.Sprintf("%s is in low stock (%d units remaining). Order soon!", p.Name, p.Stock)
	default:
		status.Status = "In Stock"
		status.Message = fmt.Sprintf("%s is in stock (%d units available).", p.Name, p.Stock)
	}
	return status, nil
}

// find matches by SKU or case-insensitive name, in either direction: a bare
// fragment ("iphone") matches the product name, and a full sentence ("do you
// have the iPhone 15 Pro?") matches a product name it contains.
func (c *CatalogAdapter) find(query string) (Product, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Product{}, false
	}
	for _, p := range c.products {
		name := strings.ToLower(p.Name)
		sku := strings.ToLower(p.SKU)
		if q == sku || strings.Contains(q, sku) || strings.Contains(name, q) || strings.Contains(q, name) {
			return p, true
		}
	}
	return Product{}, false
}

func hasAnyTag(p Product, tags []string) bool {
	for _, want := range tags {
		for _, have := range p.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// seedCatalog returns the built-in demo inventory.
func seedCatalog() []Product {
	return []Product{
		{
			SKU: "SKU-41", Name: "iPhone 15 Pro", Category: "Phones", Price: 999, Stock: 8,
			Specs:       map[string]string{"display": "6.1\" OLED", "chip": "A17 Pro", "storage": "256GB"},
			Description: "Apple's flagship phone with titanium frame.",
			Tags:        []string{"phone", "apple", "flagship"},
		},
		{
			SKU: "SKU-42", Name: "Dell XPS 15", Category: "Laptops", Price: 1299, Stock: 45,
			Specs:       map[string]string{"display": "15.6\" 4K OLED", "cpu": "Intel i7", "ram": "16GB"},
			Description: "Performance laptop well suited for video editing.",
			Tags:        []string{"laptop", "video editing", "professional"},
		},
		{
			SKU: "SKU-43", Name: "Sony WH-1000XM5", Category: "Audio", Price: 399, Stock: 30,
			Specs:       map[string]string{"battery": "30h", "anc": "industry-leading"},
			Description: "Noise-cancelling headphones for focus work.",
			Tags:        []string{"audio", "headphones", "professional"},
		},
		{
			SKU: "SKU-44", Name: "Samsung Galaxy S24", Category: "Phones", Price: 799, Stock: 0,
			Description:     "Compact Android flagship.",
			Tags:            []string{"phone", "android"},
			ExpectedRestock: "2 weeks",
		},
		{
			SKU: "SKU-45", Name: "Logitech MX Master 3S", Category: "Accessories", Price: 99, Stock: 120,
			Description: "Ergonomic productivity mouse.",
			Tags:        []string{"accessories", "productivity"},
		},
		{
			SKU: "SKU-46", Name: "iPad Air", Category: "Tablets", Price: 599, Stock: 6,
			Description: "Light tablet for sketching and media.",
			Tags:        []string{"tablet", "apple"},
		},
	}
}
