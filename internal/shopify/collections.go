package shopify

import (
	"context"
	"strings"
)

type collectionNode struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Handle        string `json:"handle"`
	Description   string `json:"description"`
	ProductsCount *struct {
		Count int `json:"count"`
	} `json:"productsCount"`
}

// Collections lists collections, optionally filtered by title.
func (c *Client) Collections(ctx context.Context, name string, limit int) ([]Collection, error) {
	vars := map[string]any{}
	if n := strings.TrimSpace(name); n != "" {
		vars["query"] = "title:*" + searchEscape(n) + "*"
	}
	nodes, err := readLimited[collectionNode](ctx, c, PageQuery{
		Op: "Collections", Query: queryCollections, Variables: vars, Connection: "collections",
	}, limit)
	out := make([]Collection, 0, len(nodes))
	for _, n := range nodes {
		col := Collection{ID: n.ID, Title: n.Title, Handle: n.Handle, Description: n.Description}
		if n.ProductsCount != nil {
			col.ProductsCount = n.ProductsCount.Count
		}
		out = append(out, col)
	}
	return out, err
}
