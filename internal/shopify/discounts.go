package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type discountNode struct {
	ID           string `json:"id"`
	CodeDiscount *struct {
		Title                  string       `json:"title"`
		Status                 string       `json:"status"`
		StartsAt               time.Time    `json:"startsAt"`
		EndsAt                 *time.Time   `json:"endsAt"`
		AppliesOncePerCustomer bool         `json:"appliesOncePerCustomer"`
		CombinesWith           CombinesWith `json:"combinesWith"`
		Codes                  struct {
			Nodes []struct {
				Code string `json:"code"`
			} `json:"nodes"`
		} `json:"codes"`
		CustomerGets struct {
			Value struct {
				Percentage *decimal.Decimal `json:"percentage"`
				Amount     *Money           `json:"amount"`
			} `json:"value"`
		} `json:"customerGets"`
	} `json:"codeDiscount"`
}

func (n discountNode) discount() Discount {
	d := Discount{ID: n.ID}
	cd := n.CodeDiscount
	if cd == nil {
		return d
	}
	d.Title = cd.Title
	d.Status = cd.Status
	d.StartsAt = cd.StartsAt
	d.EndsAt = cd.EndsAt
	d.AppliesOncePerCustomer = cd.AppliesOncePerCustomer
	d.CombinesWith = cd.CombinesWith
	if len(cd.Codes.Nodes) > 0 {
		d.Code = cd.Codes.Nodes[0].Code
	}
	switch v := cd.CustomerGets.Value; {
	case v.Percentage != nil:
		d.ValueType = DiscountPercentage
		d.Value = *v.Percentage
	case v.Amount != nil:
		d.ValueType = DiscountFixedAmount
		d.Value = v.Amount.Amount
	}
	return d
}

type DiscountInput struct {
	Title     string
	Code      string
	ValueType DiscountValueType
	// Value is a fraction in (0, 1] for percentages, or a currency amount.
	Value                  decimal.Decimal
	StartsAt               time.Time
	EndsAt                 *time.Time
	AppliesOncePerCustomer bool
	CombinesWith           CombinesWith
}

func (in DiscountInput) variables() (map[string]any, error) {
	var value map[string]any
	switch in.ValueType {
	case DiscountPercentage:
		// json.Number keeps the decimal's exact digits on the wire.
		value = map[string]any{"percentage": json.Number(in.Value.String())}
	case DiscountFixedAmount:
		value = map[string]any{"discountAmount": map[string]any{
			"amount":            in.Value.String(),
			"appliesOnEachItem": false,
		}}
	default:
		return nil, fmt.Errorf("unknown discount value type %q", in.ValueType)
	}
	input := map[string]any{
		"title":                  in.Title,
		"code":                   in.Code,
		"startsAt":               in.StartsAt.UTC().Format(time.RFC3339),
		"appliesOncePerCustomer": in.AppliesOncePerCustomer,
		"combinesWith":           in.CombinesWith,
		"customerSelection":      map[string]any{"all": true},
		"customerGets": map[string]any{
			"value": value,
			"items": map[string]any{"all": true},
		},
	}
	if in.EndsAt != nil {
		input["endsAt"] = in.EndsAt.UTC().Format(time.RFC3339)
	}
	return map[string]any{"basicCodeDiscount": input}, nil
}

// CreateDiscount creates a basic code discount applying to all customers and
// all items. Code collisions and out-of-range values surface as user errors.
func (c *Client) CreateDiscount(ctx context.Context, in DiscountInput) (Discount, error) {
	const op = "DiscountCodeBasicCreate"
	if in.StartsAt.IsZero() {
		in.StartsAt = time.Now()
	}
	vars, err := in.variables()
	if err != nil {
		return Discount{}, userError(op, err.Error(), nil, FieldError{Field: []string{"valueType"}, Message: err.Error()})
	}
	var resp struct {
		DiscountCodeBasicCreate struct {
			CodeDiscountNode *discountNode `json:"codeDiscountNode"`
		} `json:"discountCodeBasicCreate"`
	}
	if err := decode(ctx, c, op, Request{Query: mutationDiscountCreate, Variables: vars}, &resp); err != nil {
		return Discount{}, err
	}
	if resp.DiscountCodeBasicCreate.CodeDiscountNode == nil {
		return Discount{}, &Error{Kind: KindProtocol, Op: op, Message: "discount missing from payload"}
	}
	return resp.DiscountCodeBasicCreate.CodeDiscountNode.discount(), nil
}

// Discount reads a code discount back by id.
func (c *Client) Discount(ctx context.Context, id string) (Discount, error) {
	var resp struct {
		CodeDiscountNode *discountNode `json:"codeDiscountNode"`
	}
	if err := decode(ctx, c, "Discount", Request{Query: queryDiscount, Variables: map[string]any{"id": id}}, &resp); err != nil {
		return Discount{}, err
	}
	if resp.CodeDiscountNode == nil {
		return Discount{}, notFound("Discount", "discount", id)
	}
	return resp.CodeDiscountNode.discount(), nil
}
