package shopify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// MaxPageSize is the largest "first" argument the remote accepts.
const MaxPageSize = 250

const defaultMaxPages = 1000

// Page is one slice of a cursor-paginated connection. EndCursor is set only
// when HasNextPage is true.
type Page[T any] struct {
	Items       []T    `json:"items"`
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor,omitempty"`
}

// PageQuery describes a paginated read. Query must declare an $after
// variable; Connection is a JMESPath expression locating the connection
// object inside data, e.g. "products" or "collection.products".
type PageQuery struct {
	Op         string
	Query      string
	Variables  map[string]any
	Connection string
}

type WalkOptions struct {
	// MaxItems stops the walk once this many items were collected. 0 means all.
	MaxItems int
	// MaxPages bounds the number of requests. 0 means the default of 1000.
	MaxPages int
}

type pageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type connection[T any] struct {
	Edges []struct {
		Cursor string `json:"cursor"`
		Node   T      `json:"node"`
	} `json:"edges"`
	Nodes    []T      `json:"nodes"`
	PageInfo pageInfo `json:"pageInfo"`
}

// FetchPage reads the page that starts after cursor ("" for the first page).
func FetchPage[T any](ctx context.Context, d Doer, q PageQuery, cursor string) (Page[T], error) {
	vars := make(map[string]any, len(q.Variables)+1)
	for k, v := range q.Variables {
		vars[k] = v
	}
	if cursor != "" {
		vars["after"] = cursor
	}
	data, err := d.Do(ctx, q.Op, Request{Query: q.Query, Variables: vars})
	if err != nil {
		return Page[T]{}, err
	}

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return Page[T]{}, &Error{Kind: KindProtocol, Op: q.Op, Message: "unexpected response shape", Err: err}
	}
	found, err := jmespath.Search(q.Connection, tree)
	if err != nil {
		return Page[T]{}, &Error{Kind: KindProtocol, Op: q.Op, Message: "bad connection path " + q.Connection, Err: err}
	}
	if found == nil {
		return Page[T]{}, &Error{Kind: KindNotFound, Op: q.Op, Message: q.Connection + " not found", Detail: map[string]any{"connection": q.Connection}}
	}
	raw, err := json.Marshal(found)
	if err != nil {
		return Page[T]{}, &Error{Kind: KindProtocol, Op: q.Op, Message: "unexpected response shape", Err: err}
	}
	var conn connection[T]
	if err := json.Unmarshal(raw, &conn); err != nil {
		return Page[T]{}, &Error{Kind: KindProtocol, Op: q.Op, Message: "unexpected connection shape", Err: err}
	}

	page := Page[T]{HasNextPage: conn.PageInfo.HasNextPage}
	if len(conn.Edges) > 0 {
		page.Items = make([]T, 0, len(conn.Edges))
		for _, e := range conn.Edges {
			page.Items = append(page.Items, e.Node)
		}
		if conn.PageInfo.EndCursor == nil {
			c := conn.Edges[len(conn.Edges)-1].Cursor
			conn.PageInfo.EndCursor = &c
		}
	} else {
		page.Items = conn.Nodes
	}
	if page.HasNextPage {
		if conn.PageInfo.EndCursor == nil || *conn.PageInfo.EndCursor == "" {
			return page, &Error{Kind: KindProtocol, Op: q.Op, Message: "hasNextPage without endCursor"}
		}
		page.EndCursor = *conn.PageInfo.EndCursor
		if page.EndCursor == cursor {
			return page, &Error{Kind: KindProtocol, Op: q.Op, Message: "cursor did not advance", Detail: map[string]any{"cursor": cursor}}
		}
	}
	return page, nil
}

// FetchAll walks the connection from the start and concatenates items in
// page order. On error it returns what it collected so far with the error.
func FetchAll[T any](ctx context.Context, d Doer, q PageQuery, opts WalkOptions) ([]T, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	var (
		out    []T
		cursor string
	)
	for pages := 0; ; pages++ {
		if pages >= maxPages {
			return out, &Error{Kind: KindProtocol, Op: q.Op, Message: fmt.Sprintf("more than %d pages", maxPages)}
		}
		page, err := FetchPage[T](ctx, d, q, cursor)
		if err != nil {
			return out, err
		}
		out = append(out, page.Items...)
		if opts.MaxItems > 0 && len(out) >= opts.MaxItems {
			return out[:opts.MaxItems], nil
		}
		if !page.HasNextPage {
			return out, nil
		}
		cursor = page.EndCursor
	}
}

// pageSize clamps a requested limit to what one request may ask for.
func pageSize(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// readLimited returns the first limit items (all when limit <= 0), walking
// pages only when one request cannot satisfy the limit.
func readLimited[T any](ctx context.Context, d Doer, q PageQuery, limit int) ([]T, error) {
	if q.Variables == nil {
		q.Variables = map[string]any{}
	}
	q.Variables["first"] = pageSize(limit)
	return FetchAll[T](ctx, d, q, WalkOptions{MaxItems: limit})
}

// collect reads up to limit items starting after cursor, sizing each request
// to what is still missing so the returned cursor never skips items.
func collect[T any](ctx context.Context, d Doer, q PageQuery, cursor string, limit int) (Page[T], error) {
	if limit <= 0 {
		limit = MaxPageSize
	}
	var out Page[T]
	for pages := 0; pages < defaultMaxPages; pages++ {
		vars := make(map[string]any, len(q.Variables)+1)
		for k, v := range q.Variables {
			vars[k] = v
		}
		vars["first"] = pageSize(limit - len(out.Items))
		page, err := FetchPage[T](ctx, d, PageQuery{Op: q.Op, Query: q.Query, Variables: vars, Connection: q.Connection}, cursor)
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, page.Items...)
		out.HasNextPage, out.EndCursor = page.HasNextPage, page.EndCursor
		if !page.HasNextPage || len(out.Items) >= limit {
			return out, nil
		}
		cursor = page.EndCursor
	}
	return out, &Error{Kind: KindProtocol, Op: q.Op, Message: fmt.Sprintf("more than %d pages", defaultMaxPages)}
}
