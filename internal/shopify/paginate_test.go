package shopify

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idNode struct {
	ID string `json:"id"`
}

func pagedProducts(pages [][]string) handlerFunc {
	return func(vars map[string]any) reply {
		idx := 0
		if after, ok := vars["after"].(string); ok {
			fmt.Sscanf(after, "c%d", &idx)
		}
		nodes := make([]any, 0, len(pages[idx]))
		for _, id := range pages[idx] {
			nodes = append(nodes, map[string]any{"id": id})
		}
		next := idx+1 < len(pages)
		end := ""
		if next {
			end = fmt.Sprintf("c%d", idx+1)
		}
		return data(map[string]any{"products": connectionOf(nodes, next, end)})
	}
}

var productsPage = PageQuery{Op: "Products", Query: queryProducts, Variables: map[string]any{"first": 2}, Connection: "products"}

func ids(nodes []idNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestFetchAllConcatenatesInOrder(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Products", pagedProducts([][]string{{"a", "b"}, {"c", "d"}, {"e"}}))

	got, err := FetchAll[idNode](context.Background(), f.client(), productsPage, WalkOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(got))
	assert.Equal(t, 3, f.count("Products"))
}

func TestFetchAllMaxItems(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Products", pagedProducts([][]string{{"a", "b"}, {"c", "d"}, {"e"}}))

	got, err := FetchAll[idNode](context.Background(), f.client(), productsPage, WalkOptions{MaxItems: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, 2, f.count("Products"))
}

func TestFetchAllRetriesThrottledPage(t *testing.T) {
	f := newFakeAdmin(t)
	inner := pagedProducts([][]string{{"a", "b"}, {"c"}})
	throttledOnce := false
	f.on("Products", func(vars map[string]any) reply {
		if vars["after"] == "c1" && !throttledOnce {
			throttledOnce = true
			return reply{Status: http.StatusTooManyRequests, Body: `{}`}
		}
		return inner(vars)
	})

	got, err := FetchAll[idNode](context.Background(), f.client(), productsPage, WalkOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, 3, f.count("Products"))
}

func TestFetchAllRepeatedCursor(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Products", func(vars map[string]any) reply {
		return data(map[string]any{"products": connectionOf([]any{map[string]any{"id": "x"}}, true, "same")})
	})

	got, err := FetchAll[idNode](context.Background(), f.client(), productsPage, WalkOptions{})
	require.Error(t, err)
	assert.Equal(t, KindProtocol, KindOf(err))
	assert.Equal(t, []string{"x"}, ids(got), "items gathered before the fault are kept")
}

func TestFetchAllMissingCursor(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Products", func(map[string]any) reply {
		return data(map[string]any{"products": connectionOf([]any{}, true, "")})
	})
	_, err := FetchAll[idNode](context.Background(), f.client(), productsPage, WalkOptions{})
	assert.Equal(t, KindProtocol, KindOf(err))
}

func TestFetchAllMaxPages(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Products", pagedProducts([][]string{{"a"}, {"b"}, {"c"}, {"d"}}))

	got, err := FetchAll[idNode](context.Background(), f.client(), productsPage, WalkOptions{MaxPages: 2})
	assert.Equal(t, KindProtocol, KindOf(err))
	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestFetchPageEdges(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("CollectionProducts", func(map[string]any) reply {
		return data(map[string]any{"collection": map[string]any{"products": map[string]any{
			"edges": []any{
				map[string]any{"cursor": "e1", "node": map[string]any{"id": "p1"}},
				map[string]any{"cursor": "e2", "node": map[string]any{"id": "p2"}},
			},
			"pageInfo": map[string]any{"hasNextPage": true},
		}}})
	})
	q := PageQuery{Op: "CollectionProducts", Query: queryCollectionProducts, Variables: map[string]any{"id": "gid://shopify/Collection/1", "first": 2}, Connection: "collection.products"}

	page, err := FetchPage[idNode](context.Background(), f.client(), q, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids(page.Items))
	assert.True(t, page.HasNextPage)
	assert.Equal(t, "e2", page.EndCursor)
}

func TestFetchPageNullParentIsNotFound(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("CollectionProducts", func(map[string]any) reply { return data(map[string]any{"collection": nil}) })
	q := PageQuery{Op: "CollectionProducts", Query: queryCollectionProducts, Variables: map[string]any{"id": "gid://shopify/Collection/404", "first": 2}, Connection: "collection.products"}

	_, err := FetchPage[idNode](context.Background(), f.client(), q, "")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestFetchPageLastPageHasNoCursor(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Products", func(map[string]any) reply {
		return data(map[string]any{"products": connectionOf([]any{map[string]any{"id": "z"}}, false, "ignored")})
	})
	page, err := FetchPage[idNode](context.Background(), f.client(), productsPage, "")
	require.NoError(t, err)
	assert.False(t, page.HasNextPage)
	assert.Empty(t, page.EndCursor)
}
