package shopify

import (
	"context"
)

type draftOrderNode struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Status        DraftOrderStatus `json:"status"`
	Email         string           `json:"email"`
	Note2         string           `json:"note2"`
	Tags          []string         `json:"tags"`
	TotalPriceSet *moneyBag        `json:"totalPriceSet"`
	LineItems     struct {
		Nodes []struct {
			Title    string `json:"title"`
			Quantity int    `json:"quantity"`
			Variant  *struct {
				ID string `json:"id"`
			} `json:"variant"`
		} `json:"nodes"`
	} `json:"lineItems"`
	ShippingAddress *addressNode `json:"shippingAddress"`
	BillingAddress  *addressNode `json:"billingAddress"`
	Order           *OrderRef    `json:"order"`
}

func (n draftOrderNode) draftOrder() DraftOrder {
	d := DraftOrder{
		ID:              n.ID,
		Name:            n.Name,
		Status:          n.Status,
		Email:           n.Email,
		Note:            n.Note2,
		Tags:            n.Tags,
		ShippingAddress: n.ShippingAddress.address(),
		BillingAddress:  n.BillingAddress.address(),
		Order:           n.Order,
	}
	if n.TotalPriceSet != nil {
		m := n.TotalPriceSet.ShopMoney
		d.TotalPrice = &m
	}
	d.LineItems = make([]DraftLineItem, 0, len(n.LineItems.Nodes))
	for _, li := range n.LineItems.Nodes {
		item := DraftLineItem{Title: li.Title, Quantity: li.Quantity}
		if li.Variant != nil {
			item.VariantID = li.Variant.ID
		}
		d.LineItems = append(d.LineItems, item)
	}
	return d
}

type DraftLineItemInput struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type DraftOrderInput struct {
	Email           string
	Note            string
	Tags            []string
	LineItems       []DraftLineItemInput
	ShippingAddress *Address
	// BillingAddress defaults to ShippingAddress when nil.
	BillingAddress *Address
}

func (in DraftOrderInput) variables() map[string]any {
	input := map[string]any{"lineItems": in.LineItems}
	if in.Email != "" {
		input["email"] = in.Email
	}
	if in.Note != "" {
		input["note"] = in.Note
	}
	if len(in.Tags) > 0 {
		input["tags"] = in.Tags
	}
	billing := in.BillingAddress
	if billing == nil {
		billing = in.ShippingAddress
	}
	if in.ShippingAddress != nil {
		input["shippingAddress"] = in.ShippingAddress
	}
	if billing != nil {
		input["billingAddress"] = billing
	}
	return map[string]any{"input": input}
}

// CreateDraftOrder creates an open draft order.
func (c *Client) CreateDraftOrder(ctx context.Context, in DraftOrderInput) (DraftOrder, error) {
	const op = "DraftOrderCreate"
	if len(in.LineItems) == 0 {
		return DraftOrder{}, userError(op, "at least one line item is required", nil,
			FieldError{Field: []string{"lineItems"}, Message: "at least one line item is required"})
	}
	var resp struct {
		DraftOrderCreate struct {
			DraftOrder *draftOrderNode `json:"draftOrder"`
		} `json:"draftOrderCreate"`
	}
	if err := decode(ctx, c, op, Request{Query: mutationDraftOrderCreate, Variables: in.variables()}, &resp); err != nil {
		return DraftOrder{}, err
	}
	if resp.DraftOrderCreate.DraftOrder == nil {
		return DraftOrder{}, &Error{Kind: KindProtocol, Op: op, Message: "draft order missing from payload"}
	}
	return resp.DraftOrderCreate.DraftOrder.draftOrder(), nil
}

// DraftOrder reads a draft order by id.
func (c *Client) DraftOrder(ctx context.Context, id string) (DraftOrder, error) {
	var resp struct {
		DraftOrder *draftOrderNode `json:"draftOrder"`
	}
	if err := decode(ctx, c, "DraftOrder", Request{Query: queryDraftOrder, Variables: map[string]any{"id": id}}, &resp); err != nil {
		return DraftOrder{}, err
	}
	if resp.DraftOrder == nil {
		return DraftOrder{}, notFound("DraftOrder", "draft order", id)
	}
	return resp.DraftOrder.draftOrder(), nil
}

// CompleteDraftOrder turns an open draft into an order. When
// expectedVariantID is set the draft must contain it. Completing a draft a
// second time fails with a user error whose detail names the order produced
// the first time.
func (c *Client) CompleteDraftOrder(ctx context.Context, draftOrderID, expectedVariantID string) (OrderRef, error) {
	const op = "DraftOrderComplete"
	draft, err := c.DraftOrder(ctx, draftOrderID)
	if err != nil {
		return OrderRef{}, err
	}
	if draft.Status == DraftOrderCompleted {
		detail := map[string]any{"draftOrderId": draft.ID}
		if draft.Order != nil {
			detail["orderId"] = draft.Order.ID
		}
		return OrderRef{}, userError(op, "draft order is already completed", detail,
			FieldError{Field: []string{"id"}, Message: "draft order is already completed", Code: "ALREADY_COMPLETED"})
	}
	if expectedVariantID != "" && !draft.hasVariant(expectedVariantID) {
		return OrderRef{}, userError(op, "variant is not on this draft order", map[string]any{"draftOrderId": draft.ID, "variantId": expectedVariantID},
			FieldError{Field: []string{"variantId"}, Message: "variant is not on this draft order"})
	}

	var resp struct {
		DraftOrderComplete struct {
			DraftOrder *struct {
				ID     string           `json:"id"`
				Status DraftOrderStatus `json:"status"`
				Order  *OrderRef        `json:"order"`
			} `json:"draftOrder"`
		} `json:"draftOrderComplete"`
	}
	if err := decode(ctx, c, op, Request{Query: mutationDraftOrderComplete, Variables: map[string]any{"id": draftOrderID}}, &resp); err != nil {
		return OrderRef{}, err
	}
	done := resp.DraftOrderComplete.DraftOrder
	if done == nil || done.Order == nil {
		return OrderRef{}, &Error{Kind: KindProtocol, Op: op, Message: "completed draft carries no order"}
	}
	return *done.Order, nil
}

func (d DraftOrder) hasVariant(variantID string) bool {
	for _, li := range d.LineItems {
		if li.VariantID == variantID {
			return true
		}
	}
	return false
}
