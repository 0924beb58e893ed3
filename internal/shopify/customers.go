package shopify

import (
	"context"
	"strconv"
	"strings"
)

type customerNode struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Tags           []string `json:"tags"`
	NumberOfOrders string   `json:"numberOfOrders"`
	AmountSpent    *Money   `json:"amountSpent"`
	CreatedAt      string   `json:"createdAt"`
}

func (n customerNode) customer() Customer {
	// numberOfOrders is an UnsignedInt64 scalar serialised as a string.
	count, _ := strconv.Atoi(n.NumberOfOrders)
	return Customer{
		ID:          n.ID,
		FirstName:   n.FirstName,
		LastName:    n.LastName,
		Email:       n.Email,
		Phone:       n.Phone,
		Tags:        n.Tags,
		OrdersCount: count,
		AmountSpent: n.AmountSpent,
		CreatedAt:   n.CreatedAt,
	}
}

// Customers returns one page of customers starting after cursor.
func (c *Client) Customers(ctx context.Context, limit int, cursor string) (Page[Customer], error) {
	page, err := FetchPage[customerNode](ctx, c, PageQuery{
		Op:         "Customers",
		Query:      queryCustomers,
		Variables:  map[string]any{"first": pageSize(limit)},
		Connection: "customers",
	}, cursor)
	out := Page[Customer]{HasNextPage: page.HasNextPage, EndCursor: page.EndCursor}
	out.Items = make([]Customer, 0, len(page.Items))
	for _, n := range page.Items {
		out.Items = append(out.Items, n.customer())
	}
	return out, err
}

// TagCustomer adds tags to a customer and returns the updated record. Tags
// are trimmed and de-duplicated before sending; existing tags are kept.
func (c *Client) TagCustomer(ctx context.Context, customerID string, tags []string) (Customer, error) {
	clean := uniqueTags(tags)
	if len(clean) == 0 {
		return Customer{}, userError("TagsAdd", "at least one tag is required", nil,
			FieldError{Field: []string{"tags"}, Message: "at least one tag is required"})
	}
	var added struct {
		TagsAdd struct {
			Node *struct {
				ID string `json:"id"`
			} `json:"node"`
		} `json:"tagsAdd"`
	}
	req := Request{Query: mutationTagsAdd, Variables: map[string]any{"id": customerID, "tags": clean}}
	if err := decode(ctx, c, "TagsAdd", req, &added); err != nil {
		return Customer{}, err
	}
	if added.TagsAdd.Node == nil {
		return Customer{}, notFound("TagsAdd", "customer", customerID)
	}
	return c.Customer(ctx, customerID)
}

func (c *Client) Customer(ctx context.Context, customerID string) (Customer, error) {
	var resp struct {
		Customer *customerNode `json:"customer"`
	}
	if err := decode(ctx, c, "Customer", Request{Query: queryCustomer, Variables: map[string]any{"id": customerID}}, &resp); err != nil {
		return Customer{}, err
	}
	if resp.Customer == nil {
		return Customer{}, notFound("Customer", "customer", customerID)
	}
	return resp.Customer.customer(), nil
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
