package shopify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type variantNode struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	SKU             string          `json:"sku"`
	InventoryPolicy string          `json:"inventoryPolicy"`
	Product         *ProductRef     `json:"product"`
}

func (n variantNode) variant() Variant {
	return Variant{
		ID:              n.ID,
		Title:           n.Title,
		Price:           n.Price,
		SKU:             n.SKU,
		InventoryPolicy: n.InventoryPolicy,
		Product:         n.Product,
	}
}

type productNode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Handle      string `json:"handle"`
	Variants    struct {
		Nodes []variantNode `json:"nodes"`
	} `json:"variants"`
}

func (n productNode) product() Product {
	p := Product{ID: n.ID, Title: n.Title, Description: n.Description, Handle: n.Handle}
	p.Variants = make([]Variant, 0, len(n.Variants.Nodes))
	for _, v := range n.Variants.Nodes {
		vv := v.variant()
		vv.Product = &ProductRef{ID: n.ID, Title: n.Title}
		p.Variants = append(p.Variants, vv)
	}
	return p
}

func products(nodes []productNode) []Product {
	out := make([]Product, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.product())
	}
	return out
}

// Products lists products, optionally filtered by a title substring.
func (c *Client) Products(ctx context.Context, title string, limit int) ([]Product, error) {
	vars := map[string]any{}
	if t := strings.TrimSpace(title); t != "" {
		vars["query"] = "title:*" + searchEscape(t) + "*"
	}
	nodes, err := readLimited[productNode](ctx, c, PageQuery{
		Op: "Products", Query: queryProducts, Variables: vars, Connection: "products",
	}, limit)
	return products(nodes), err
}

// ProductsByCollection lists the products of one collection. A collection
// that does not exist yields KindNotFound.
func (c *Client) ProductsByCollection(ctx context.Context, collectionID string, limit int) ([]Product, error) {
	nodes, err := readLimited[productNode](ctx, c, PageQuery{
		Op:         "CollectionProducts",
		Query:      queryCollectionProducts,
		Variables:  map[string]any{"id": collectionID},
		Connection: "collection.products",
	}, limit)
	return products(nodes), err
}

// ProductsByIDs resolves each id. Unknown ids are left out of the result.
func (c *Client) ProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	raw, err := c.nodes(ctx, "ProductsByIDs", queryProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(raw))
	for _, r := range raw {
		var n productNode
		if err := json.Unmarshal(r, &n); err != nil {
			return out, &Error{Kind: KindProtocol, Op: "ProductsByIDs", Message: "unexpected node shape", Err: err}
		}
		if n.ID == "" {
			continue
		}
		out = append(out, n.product())
	}
	return out, nil
}

// VariantsByIDs resolves each id. Unknown ids are left out of the result.
func (c *Client) VariantsByIDs(ctx context.Context, ids []string) ([]Variant, error) {
	raw, err := c.nodes(ctx, "VariantsByIDs", queryVariantsByIDs, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Variant, 0, len(raw))
	for _, r := range raw {
		var n variantNode
		if err := json.Unmarshal(r, &n); err != nil {
			return out, &Error{Kind: KindProtocol, Op: "VariantsByIDs", Message: "unexpected node shape", Err: err}
		}
		if n.ID == "" {
			continue
		}
		out = append(out, n.variant())
	}
	return out, nil
}

// nodes runs nodes(ids:) lookups in batches of MaxPageSize, keeping the
// order of ids and dropping null entries.
func (c *Client) nodes(ctx context.Context, op, query string, ids []string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for start := 0; start < len(ids); start += MaxPageSize {
		end := min(start+MaxPageSize, len(ids))
		var resp struct {
			Nodes []json.RawMessage `json:"nodes"`
		}
		if err := decode(ctx, c, op, Request{Query: query, Variables: map[string]any{"ids": ids[start:end]}}, &resp); err != nil {
			return out, err
		}
		for _, n := range resp.Nodes {
			if isNullData(n) {
				continue
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// searchEscape quotes characters that carry meaning in the remote search
// syntax.
func searchEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `:`, `\:`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
