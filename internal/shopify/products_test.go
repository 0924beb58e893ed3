package shopify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productJSON(id, title string) map[string]any {
	return map[string]any{
		"id": id, "title": title, "description": "Stoneware", "handle": "mug",
		"variants": map[string]any{"nodes": []any{
			map[string]any{"id": "gid://shopify/ProductVariant/5", "title": "Blue", "price": "9.95", "sku": "MUG-B", "inventoryPolicy": "DENY"},
		}},
	}
}

func TestProductsTitleSearch(t *testing.T) {
	f := newFakeAdmin(t)
	var seen map[string]any
	f.on("Products", func(vars map[string]any) reply {
		seen = vars
		return data(map[string]any{"products": connectionOf([]any{productJSON("gid://shopify/Product/1", "Mug")}, false, "")})
	})
	got, err := f.client().Products(context.Background(), "mug", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "title:*mug*", seen["query"])
	assert.Equal(t, float64(5), seen["first"])
	require.Len(t, got[0].Variants, 1)
	assert.Equal(t, "9.95", got[0].Variants[0].Price.String())
	assert.Equal(t, "gid://shopify/Product/1", got[0].Variants[0].Product.ID)
}

func TestProductsByIDsOmitsNulls(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("ProductsByIDs", func(map[string]any) reply {
		return data(map[string]any{"nodes": []any{productJSON("gid://shopify/Product/1", "Mug"), nil, map[string]any{}}})
	})
	got, err := f.client().ProductsByIDs(context.Background(), []string{"gid://shopify/Product/1", "gid://shopify/Product/2", "gid://shopify/Order/3"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mug", got[0].Title)
}

func TestProductsByIDsBatchesLargeSets(t *testing.T) {
	f := newFakeAdmin(t)
	var sizes []int
	f.on("ProductsByIDs", func(vars map[string]any) reply {
		ids := vars["ids"].([]any)
		sizes = append(sizes, len(ids))
		nodes := make([]any, 0, len(ids))
		for _, id := range ids {
			nodes = append(nodes, productJSON(id.(string), DisplayID(id.(string))))
		}
		return data(map[string]any{"nodes": nodes})
	})

	ids := make([]string, 0, 2*MaxPageSize+1)
	for i := 1; i <= 2*MaxPageSize+1; i++ {
		ids = append(ids, fmt.Sprintf("gid://shopify/Product/%d", i))
	}
	got, err := f.client().ProductsByIDs(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, []int{MaxPageSize, MaxPageSize, 1}, sizes)
	require.Len(t, got, len(ids))
	assert.Equal(t, "1", got[0].Title)
	assert.Equal(t, "501", got[len(got)-1].Title)
}

func TestVariantsByIDs(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("VariantsByIDs", func(map[string]any) reply {
		return data(map[string]any{"nodes": []any{nil, map[string]any{
			"id": "gid://shopify/ProductVariant/5", "title": "Blue", "price": "9.95", "sku": "MUG-B",
			"product": map[string]any{"id": "gid://shopify/Product/1", "title": "Mug"},
		}}})
	})
	got, err := f.client().VariantsByIDs(context.Background(), []string{"gid://shopify/ProductVariant/4", "gid://shopify/ProductVariant/5"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mug", got[0].Product.Title)
}

func TestProductsByCollectionNotFound(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("CollectionProducts", func(map[string]any) reply { return data(map[string]any{"collection": nil}) })
	_, err := f.client().ProductsByCollection(context.Background(), "gid://shopify/Collection/404", 10)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestTagCustomerDedupes(t *testing.T) {
	f := newFakeAdmin(t)
	var sent []any
	f.on("TagsAdd", func(vars map[string]any) reply {
		sent = vars["tags"].([]any)
		return data(map[string]any{"tagsAdd": map[string]any{"node": map[string]any{"id": vars["id"]}, "userErrors": []any{}}})
	})
	f.on("Customer", func(vars map[string]any) reply {
		return data(map[string]any{"customer": map[string]any{
			"id": vars["id"], "firstName": "Ada", "email": "ada@example.com", "tags": []any{"vip", "wholesale"},
			"numberOfOrders": "3", "amountSpent": map[string]any{"amount": "120.00", "currencyCode": "EUR"},
		}})
	})
	cust, err := f.client().TagCustomer(context.Background(), "gid://shopify/Customer/7", []string{"vip", " VIP", "wholesale", ""})
	require.NoError(t, err)
	assert.Equal(t, []any{"vip", "wholesale"}, sent)
	assert.Equal(t, 3, cust.OrdersCount)
	assert.Equal(t, "120", cust.AmountSpent.Amount.String())
}

func TestCustomersPage(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Customers", func(map[string]any) reply {
		return data(map[string]any{"customers": connectionOf([]any{map[string]any{"id": "gid://shopify/Customer/1", "email": "a@b.co", "numberOfOrders": "0"}}, true, "k1")})
	})
	page, err := f.client().Customers(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "k1", page.EndCursor)
}

func TestCollectionsAndShopDetails(t *testing.T) {
	f := newFakeAdmin(t)
	f.on("Collections", func(map[string]any) reply {
		return data(map[string]any{"collections": connectionOf([]any{map[string]any{
			"id": "gid://shopify/Collection/1", "title": "Summer", "handle": "summer", "productsCount": map[string]any{"count": 12},
		}}, false, "")})
	})
	f.on("ShopDetails", func(map[string]any) reply {
		return data(map[string]any{"shop": map[string]any{
			"id": "gid://shopify/Shop/1", "name": "Demo", "currencyCode": "EUR",
			"primaryDomain": map[string]any{"host": "demo.example"}, "plan": map[string]any{"displayName": "Basic"},
			"shipsToCountries": []any{"FR", "DE"},
		}})
	})
	c := f.client()

	cols, err := c.Collections(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, 12, cols[0].ProductsCount)

	d, err := c.ShopDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "demo.example", d.PrimaryDomain)
	assert.Equal(t, "Basic", d.PlanName)
	assert.Equal(t, []string{"FR", "DE"}, d.ShipsToCountries)
	assert.Nil(t, d.BillingAddress)
}
