// Package tools exposes the commerce operations as named tools with typed,
// validated arguments, and serves them over HTTP.
package tools

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"shoptools/internal/shopify"
)

const (
	ScopeRead  = "commerce:read"
	ScopeWrite = "commerce:write"
)

// Store is the commerce surface the tools call. *shopify.Client implements it.
type Store interface {
	Products(ctx context.Context, title string, limit int) ([]shopify.Product, error)
	ProductsByCollection(ctx context.Context, collectionID string, limit int) ([]shopify.Product, error)
	ProductsByIDs(ctx context.Context, ids []string) ([]shopify.Product, error)
	VariantsByIDs(ctx context.Context, ids []string) ([]shopify.Variant, error)
	Collections(ctx context.Context, name string, limit int) ([]shopify.Collection, error)
	Customers(ctx context.Context, limit int, cursor string) (shopify.Page[shopify.Customer], error)
	TagCustomer(ctx context.Context, customerID string, tags []string) (shopify.Customer, error)
	Orders(ctx context.Context, q shopify.OrdersQuery) (shopify.Page[shopify.Order], error)
	Order(ctx context.Context, orderID string) (shopify.Order, error)
	CancelOrder(ctx context.Context, in shopify.CancelOrderInput) (shopify.Order, error)
	CreateDiscount(ctx context.Context, in shopify.DiscountInput) (shopify.Discount, error)
	CreateDraftOrder(ctx context.Context, in shopify.DraftOrderInput) (shopify.DraftOrder, error)
	CompleteDraftOrder(ctx context.Context, draftOrderID, expectedVariantID string) (shopify.OrderRef, error)
	Shop(ctx context.Context) (shopify.Shop, error)
	ShopDetails(ctx context.Context) (shopify.ShopDetails, error)
	SubscribeWebhook(ctx context.Context, topic shopify.WebhookTopic, callbackURL string) (shopify.Webhook, error)
	FindWebhook(ctx context.Context, topic shopify.WebhookTopic, callbackURL string) (shopify.Webhook, error)
	UnsubscribeWebhook(ctx context.Context, id string) (string, error)
}

var _ Store = (*shopify.Client)(nil)

// Result is what a tool returns: text for the agent and the typed value.
type Result struct {
	Text string `json:"text"`
	Data any    `json:"data,omitempty"`
}

// Param describes one argument in the catalog.
type Param struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

type Tool struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scopes      []string `json:"scopes"`
	Mutates     bool     `json:"mutates"`
	Params      []Param  `json:"params"`

	bind func(v *validatorv10.Validate, raw json.RawMessage) (any, error)
	run  func(ctx context.Context, s Store, args any) (Result, error)
}

// define builds a tool whose arguments decode into In, starting from defaults.
func define[In any](name, description string, mutates bool, defaults In, run func(context.Context, Store, In) (Result, error)) Tool {
	scope := ScopeRead
	if mutates {
		scope = ScopeWrite
	}
	return Tool{
		Name:        name,
		Description: description,
		Scopes:      []string{scope},
		Mutates:     mutates,
		Params:      paramsOf(reflect.ValueOf(defaults)),
		bind: func(v *validatorv10.Validate, raw json.RawMessage) (any, error) {
			in := defaults
			if err := bindArgs(v, name, raw, &in); err != nil {
				return nil, err
			}
			return in, nil
		},
		run: func(ctx context.Context, s Store, args any) (Result, error) {
			return run(ctx, s, args.(In))
		},
	}
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// paramsOf lists the json fields of a struct value. Descriptions come from
// the desc tag, enums from oneof rules, defaults from non-zero field values.
func paramsOf(v reflect.Value) []Param {
	t := v.Type()
	params := make([]Param, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		rules := strings.Split(f.Tag.Get("validate"), ",")
		p := Param{Name: name, Type: jsonType(f.Type), Description: f.Tag.Get("desc")}
		for _, r := range rules {
			switch {
			case r == "required":
				p.Required = true
			case strings.HasPrefix(r, "oneof="):
				p.Enum = strings.Fields(strings.TrimPrefix(r, "oneof="))
			}
		}
		if fv := v.Field(i); !fv.IsZero() {
			p.Default = fv.Interface()
		}
		params = append(params, p)
	}
	return params
}

func jsonType(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return "string"
	case t == decimalType:
		return "number"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice:
		return "array"
	default:
		return "object"
	}
}
