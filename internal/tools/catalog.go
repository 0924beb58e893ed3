package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"shoptools/internal/format"
	"shoptools/internal/shopify"
)

const defaultLimit = 10

// Builtin returns every commerce tool.
func Builtin() []Tool {
	return []Tool{
		define("get-products", "Get all products or search by title", false, getProductsArgs{}, getProducts),
		define("get-products-by-collection", "Get products from a specific collection", false, getProductsByCollectionArgs{Limit: defaultLimit}, getProductsByCollection),
		define("get-products-by-ids", "Get products by their IDs", false, getProductsByIDsArgs{}, getProductsByIDs),
		define("get-variants-by-ids", "Get product variants by their IDs", false, getVariantsByIDsArgs{}, getVariantsByIDs),
		define("get-collections", "List collections, optionally filtered by name", false, getCollectionsArgs{Limit: defaultLimit}, getCollections),
		define("get-customers", "List customers one page at a time", false, getCustomersArgs{Limit: defaultLimit}, getCustomers),
		define("tag-customer", "Add tags to a customer", true, tagCustomerArgs{}, tagCustomer),
		define("get-orders", "Get orders, filtered by status, customer email or search query", false, getOrdersArgs{
			Limit: defaultLimit, Status: string(shopify.OrderStatusAny), SortKey: string(shopify.OrderSortCreatedAt), Reverse: true,
		}, getOrders),
		define("get-order", "Get a single order by ID", false, getOrderArgs{}, getOrder),
		define("cancel-order", "Cancel an open, unfulfilled order", true, cancelOrderArgs{Reason: string(shopify.CancelOther)}, cancelOrder),
		define("create-discount", "Create a basic discount code for all customers and items", true, createDiscountArgs{}, createDiscount),
		define("create-draft-order", "Create a draft order", true, createDraftOrderArgs{}, createDraftOrder),
		define("complete-draft-order", "Complete a draft order", true, completeDraftOrderArgs{}, completeDraftOrder),
		define("get-shop", "Get basic shop information", false, noArgs{}, getShop),
		define("get-shop-details", "Get extended shop information including shipping countries", false, noArgs{}, getShopDetails),
		define("manage-webhook", "Subscribe, find or unsubscribe a webhook", true, manageWebhookArgs{}, manageWebhook),
	}
}

type noArgs struct{}

type getProductsArgs struct {
	SearchTitle string `json:"searchTitle" desc:"Search title, if missing, will return all products"`
	Limit       int    `json:"limit" validate:"required,min=1" desc:"Maximum number of products to return"`
}

func getProducts(ctx context.Context, s Store, in getProductsArgs) (Result, error) {
	ps, err := s.Products(ctx, in.SearchTitle, in.Limit)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.Products(ps), Data: ps}, nil
}

type getProductsByCollectionArgs struct {
	CollectionID string `json:"collectionId" validate:"required" desc:"ID of the collection to get products from"`
	Limit        int    `json:"limit" validate:"min=1" desc:"Maximum number of products to return"`
}

func getProductsByCollection(ctx context.Context, s Store, in getProductsByCollectionArgs) (Result, error) {
	ps, err := s.ProductsByCollection(ctx, in.CollectionID, in.Limit)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.Products(ps), Data: ps}, nil
}

type getProductsByIDsArgs struct {
	ProductIDs []string `json:"productIds" validate:"required,min=1,dive,required" desc:"Array of product IDs to retrieve"`
}

func getProductsByIDs(ctx context.Context, s Store, in getProductsByIDsArgs) (Result, error) {
	ps, err := s.ProductsByIDs(ctx, in.ProductIDs)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.Products(ps), Data: ps}, nil
}

type getVariantsByIDsArgs struct {
	VariantIDs []string `json:"variantIds" validate:"required,min=1,dive,required" desc:"Array of variant IDs to retrieve"`
}

func getVariantsByIDs(ctx context.Context, s Store, in getVariantsByIDsArgs) (Result, error) {
	vs, err := s.VariantsByIDs(ctx, in.VariantIDs)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.Variants(vs), Data: vs}, nil
}

type getCollectionsArgs struct {
	Name  string `json:"name" desc:"Collection title to search for"`
	Limit int    `json:"limit" validate:"min=1" desc:"Maximum number of collections to return"`
}

func getCollections(ctx context.Context, s Store, in getCollectionsArgs) (Result, error) {
	cs, err := s.Collections(ctx, in.Name, in.Limit)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.Collections(cs), Data: cs}, nil
}

type getCustomersArgs struct {
	Limit int    `json:"limit" validate:"min=1" desc:"Maximum number of customers to return"`
	Next  string `json:"next" desc:"Cursor returned by the previous page"`
}

func getCustomers(ctx context.Context, s Store, in getCustomersArgs) (Result, error) {
	page, err := s.Customers(ctx, in.Limit, in.Next)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.CustomerPage(page), Data: page}, nil
}

type tagCustomerArgs struct {
	CustomerID string   `json:"customerId" validate:"required" desc:"ID of the customer to tag"`
	Tags       []string `json:"tags" validate:"required,min=1,dive,required" desc:"Tags to add"`
}

func tagCustomer(ctx context.Context, s Store, in tagCustomerArgs) (Result, error) {
	c, err := s.TagCustomer(ctx, in.CustomerID, in.Tags)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.Customer(c), Data: c}, nil
}

type getOrdersArgs struct {
	Limit         int    `json:"limit" validate:"min=1" desc:"Maximum number of orders to return"`
	After         string `json:"after" desc:"Cursor returned by the previous page"`
	Query         string `json:"query" desc:"Search query in the remote order search syntax"`
	OrderID       string `json:"orderId" desc:"ID of a specific order to retrieve"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email" desc:"Email of the customer to filter orders by"`
	Status        string `json:"status" validate:"oneof=any open closed cancelled" desc:"Status to filter orders by"`
	SortKey       string `json:"sortKey" validate:"oneof=CREATED_AT PROCESSED_AT UPDATED_AT TOTAL_PRICE ORDER_NUMBER ID" desc:"Field to sort orders by"`
	Reverse       bool   `json:"reverse" desc:"Newest first when sorting by date"`
}

// getOrders delegates to get-order when an order id is given.
func getOrders(ctx context.Context, s Store, in getOrdersArgs) (Result, error) {
	if strings.TrimSpace(in.OrderID) != "" {
		return getOrder(ctx, s, getOrderArgs{OrderID: in.OrderID})
	}
	page, err := s.Orders(ctx, shopify.OrdersQuery{
		Limit:         in.Limit,
		Cursor:        in.After,
		Query:         in.Query,
		Status:        shopify.OrderStatus(in.Status),
		CustomerEmail: in.CustomerEmail,
		SortKey:       shopify.OrderSortKey(in.SortKey),
		Reverse:       in.Reverse,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.OrderPage(page), Data: page}, nil
}

type getOrderArgs struct {
	OrderID string `json:"orderId" validate:"required" desc:"ID of the order to retrieve"`
}

func getOrder(ctx context.Context, s Store, in getOrderArgs) (Result, error) {
	o, err := s.Order(ctx, in.OrderID)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.Order(o), Data: o}, nil
}

type cancelOrderArgs struct {
	OrderID        string `json:"orderId" validate:"required" desc:"ID of the order to cancel"`
	Reason         string `json:"reason" validate:"cancel_reason" desc:"CUSTOMER, DECLINED, FRAUD, INVENTORY, OTHER or STAFF"`
	Restock        bool   `json:"restock" desc:"Return line items to inventory"`
	Refund         bool   `json:"refund" desc:"Refund the order's payments"`
	NotifyCustomer bool   `json:"notifyCustomer" desc:"Email the customer about the cancellation"`
	StaffNote      string `json:"staffNote" validate:"max=255" desc:"Note visible to staff only"`
}

func cancelOrder(ctx context.Context, s Store, in cancelOrderArgs) (Result, error) {
	reason, _ := shopify.ParseCancelReason(in.Reason)
	o, err := s.CancelOrder(ctx, shopify.CancelOrderInput{
		OrderID:        in.OrderID,
		Reason:         reason,
		Restock:        in.Restock,
		Refund:         in.Refund,
		NotifyCustomer: in.NotifyCustomer,
		StaffNote:      in.StaffNote,
	})
	var pending *shopify.CancelPendingError
	if errors.As(err, &pending) {
		return Result{
			Text: "Cancellation requested but not yet applied by the store.\n" + format.Order(pending.Order),
			Data: map[string]any{"pending": true, "jobId": pending.JobID, "order": pending.Order},
		}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Text: "Order cancelled.\n" + format.Order(o), Data: o}, nil
}

type createDiscountArgs struct {
	Title                  string               `json:"title" validate:"required" desc:"Discount title shown to staff"`
	Code                   string               `json:"code" validate:"required" desc:"Code customers enter at checkout"`
	ValueType              string               `json:"valueType" validate:"required,oneof=percentage fixed_amount" desc:"percentage or fixed_amount"`
	Value                  decimal.Decimal      `json:"value" validate:"gt=0" desc:"Fraction in (0, 1] for percentage, currency amount for fixed_amount"`
	StartsAt               *time.Time           `json:"startsAt" desc:"RFC 3339 start time, now when omitted"`
	EndsAt                 *time.Time           `json:"endsAt" desc:"RFC 3339 end time"`
	AppliesOncePerCustomer bool                 `json:"appliesOncePerCustomer" desc:"Limit to one use per customer"`
	CombinesWith           shopify.CombinesWith `json:"combinesWith" desc:"Discount classes this code combines with"`
}

func discountStructValidation(sl validatorv10.StructLevel) {
	in := sl.Current().Interface().(createDiscountArgs)
	if in.ValueType == string(shopify.DiscountPercentage) && in.Value.GreaterThan(decimal.NewFromInt(1)) {
		sl.ReportError(in.Value, "value", "Value", "lte", "1")
	}
	if in.EndsAt != nil {
		start := time.Now()
		if in.StartsAt != nil {
			start = *in.StartsAt
		}
		if !in.EndsAt.After(start) {
			sl.ReportError(in.EndsAt, "endsAt", "EndsAt", "gtfield", "startsAt")
		}
	}
}

func createDiscount(ctx context.Context, s Store, in createDiscountArgs) (Result, error) {
	d := shopify.DiscountInput{
		Title:                  in.Title,
		Code:                   in.Code,
		ValueType:              shopify.DiscountValueType(in.ValueType),
		Value:                  in.Value,
		EndsAt:                 in.EndsAt,
		AppliesOncePerCustomer: in.AppliesOncePerCustomer,
		CombinesWith:           in.CombinesWith,
	}
	if in.StartsAt != nil {
		d.StartsAt = *in.StartsAt
	}
	out, err := s.CreateDiscount(ctx, d)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: "Discount created.\n" + format.Discount(out), Data: out}, nil
}

type draftLineItemArgs struct {
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type draftOrderData struct {
	Email           string              `json:"email" validate:"omitempty,email"`
	Note            string              `json:"note"`
	Tags            []string            `json:"tags" validate:"dive,required"`
	LineItems       []draftLineItemArgs `json:"lineItems" validate:"required,min=1,dive"`
	ShippingAddress *shopify.Address    `json:"shippingAddress"`
	BillingAddress  *shopify.Address    `json:"billingAddress"`
}

type createDraftOrderArgs struct {
	DraftOrderData *draftOrderData `json:"draftOrderData" validate:"required" desc:"Data for creating a draft order"`
}

func createDraftOrder(ctx context.Context, s Store, in createDraftOrderArgs) (Result, error) {
	data := *in.DraftOrderData
	lines := make([]shopify.DraftLineItemInput, len(data.LineItems))
	for i, li := range data.LineItems {
		lines[i] = shopify.DraftLineItemInput{VariantID: li.VariantID, Quantity: li.Quantity}
	}
	d, err := s.CreateDraftOrder(ctx, shopify.DraftOrderInput{
		Email:           data.Email,
		Note:            data.Note,
		Tags:            data.Tags,
		LineItems:       lines,
		ShippingAddress: data.ShippingAddress,
		BillingAddress:  data.BillingAddress,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Text: "Draft order created successfully. ID: " + d.ID + "\n" + format.DraftOrder(d), Data: d}, nil
}

type completeDraftOrderArgs struct {
	DraftOrderID string `json:"draftOrderId" validate:"required" desc:"ID of the draft order to complete"`
	VariantID    string `json:"variantId" validate:"required" desc:"ID of the variant for the draft order"`
}

func completeDraftOrder(ctx context.Context, s Store, in completeDraftOrderArgs) (Result, error) {
	ref, err := s.CompleteDraftOrder(ctx, in.DraftOrderID, in.VariantID)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.CompletedDraft(in.DraftOrderID, ref), Data: ref}, nil
}

func getShop(ctx context.Context, s Store, _ noArgs) (Result, error) {
	shop, err := s.Shop(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.Shop(shop), Data: shop}, nil
}

func getShopDetails(ctx context.Context, s Store, _ noArgs) (Result, error) {
	d, err := s.ShopDetails(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.ShopDetails(d), Data: d}, nil
}

const (
	webhookSubscribe   = "subscribe"
	webhookFind        = "find"
	webhookUnsubscribe = "unsubscribe"
)

type manageWebhookArgs struct {
	Action      string `json:"action" validate:"required,oneof=subscribe find unsubscribe" desc:"subscribe, find or unsubscribe"`
	Topic       string `json:"topic" validate:"omitempty,webhook_topic" desc:"Webhook topic, e.g. ORDERS_CREATE or orders/create"`
	CallbackURL string `json:"callbackUrl" validate:"omitempty,url" desc:"Endpoint receiving the webhook"`
	WebhookID   string `json:"webhookId" desc:"ID of the subscription to delete"`
}

// webhookStructValidation requires the arguments each action needs.
func webhookStructValidation(sl validatorv10.StructLevel) {
	in := sl.Current().Interface().(manageWebhookArgs)
	switch in.Action {
	case webhookSubscribe, webhookFind:
		if in.Topic == "" {
			sl.ReportError(in.Topic, "topic", "Topic", "required", "")
		}
		if in.CallbackURL == "" {
			sl.ReportError(in.CallbackURL, "callbackUrl", "CallbackURL", "required", "")
		}
	case webhookUnsubscribe:
		if in.WebhookID == "" {
			sl.ReportError(in.WebhookID, "webhookId", "WebhookID", "required", "")
		}
	}
}

func manageWebhook(ctx context.Context, s Store, in manageWebhookArgs) (Result, error) {
	if in.Action == webhookUnsubscribe {
		id, err := s.UnsubscribeWebhook(ctx, in.WebhookID)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: format.Unsubscribed(id), Data: map[string]string{"deletedWebhookId": id}}, nil
	}
	topic, _ := shopify.ParseWebhookTopic(in.Topic)
	var (
		w   shopify.Webhook
		err error
	)
	if in.Action == webhookSubscribe {
		w, err = s.SubscribeWebhook(ctx, topic, in.CallbackURL)
	} else {
		w, err = s.FindWebhook(ctx, topic, in.CallbackURL)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Text: format.Webhook(w), Data: w}, nil
}
