package shopify

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money pairs a decimal amount with an ISO currency code.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

type moneyBag struct {
	ShopMoney Money `json:"shopMoney"`
}

type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Handle      string    `json:"handle"`
	Variants    []Variant `json:"variants"`
}

type Variant struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	SKU             string          `json:"sku"`
	InventoryPolicy string          `json:"inventoryPolicy"`
	Product         *ProductRef     `json:"product,omitempty"`
}

type ProductRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Collection struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Handle        string `json:"handle"`
	Description   string `json:"description"`
	ProductsCount int    `json:"productsCount"`
}

type Customer struct {
	ID          string   `json:"id"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Tags        []string `json:"tags"`
	OrdersCount int      `json:"ordersCount"`
	AmountSpent *Money   `json:"amountSpent,omitempty"`
	CreatedAt   string   `json:"createdAt"`
}

// CustomerRef is a lookup-only reference held by an Order.
type CustomerRef struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Address struct {
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Company      string `json:"company,omitempty"`
	Address1     string `json:"address1,omitempty"`
	Address2     string `json:"address2,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
	ProvinceCode string `json:"provinceCode,omitempty"`
	Country      string `json:"country,omitempty"`
	CountryCode  string `json:"countryCode,omitempty"`
	Zip          string `json:"zip,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type LineItem struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Quantity      int      `json:"quantity"`
	OriginalTotal Money    `json:"originalTotal"`
	Variant       *Variant `json:"variant,omitempty"`
}

type TrackingInfo struct {
	Number  string `json:"number"`
	Company string `json:"company"`
	URL     string `json:"url"`
}

type Fulfillment struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	TrackingInfo []TrackingInfo `json:"trackingInfo"`
}

const (
	FulfillmentStatusFulfilled = "FULFILLED"
)

type Order struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	CreatedAt         time.Time     `json:"createdAt"`
	CancelledAt       *time.Time    `json:"cancelledAt,omitempty"`
	CancelReason      string        `json:"cancelReason,omitempty"`
	FinancialStatus   string        `json:"financialStatus"`
	FulfillmentStatus string        `json:"fulfillmentStatus"`
	Email             string        `json:"email"`
	Phone             string        `json:"phone"`
	TotalPrice        Money         `json:"totalPrice"`
	Customer          *CustomerRef  `json:"customer,omitempty"`
	ShippingAddress   *Address      `json:"shippingAddress,omitempty"`
	LineItems         []LineItem    `json:"lineItems"`
	Fulfillments      []Fulfillment `json:"fulfillments"`
}

// Cancelled reports whether the order has left the open state.
func (o Order) Cancelled() bool { return o.CancelledAt != nil }

type DraftOrderStatus string

const (
	DraftOrderOpen        DraftOrderStatus = "OPEN"
	DraftOrderInvoiceSent DraftOrderStatus = "INVOICE_SENT"
	DraftOrderCompleted   DraftOrderStatus = "COMPLETED"
)

type DraftLineItem struct {
	VariantID string `json:"variantId"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
}

type OrderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DraftOrder struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Status          DraftOrderStatus `json:"status"`
	Email           string           `json:"email"`
	Note            string           `json:"note"`
	Tags            []string         `json:"tags"`
	LineItems       []DraftLineItem  `json:"lineItems"`
	ShippingAddress *Address         `json:"shippingAddress,omitempty"`
	BillingAddress  *Address         `json:"billingAddress,omitempty"`
	TotalPrice      *Money           `json:"totalPrice,omitempty"`
	Order           *OrderRef        `json:"order,omitempty"`
}

type DiscountValueType string

const (
	DiscountPercentage  DiscountValueType = "percentage"
	DiscountFixedAmount DiscountValueType = "fixed_amount"
)

type CombinesWith struct {
	ProductDiscounts  bool `json:"productDiscounts"`
	OrderDiscounts    bool `json:"orderDiscounts"`
	ShippingDiscounts bool `json:"shippingDiscounts"`
}

type Discount struct {
	ID                     string            `json:"id"`
	Title                  string            `json:"title"`
	Code                   string            `json:"code"`
	ValueType              DiscountValueType `json:"valueType"`
	Value                  decimal.Decimal   `json:"value"`
	StartsAt               time.Time         `json:"startsAt"`
	EndsAt                 *time.Time        `json:"endsAt,omitempty"`
	AppliesOncePerCustomer bool              `json:"appliesOncePerCustomer"`
	CombinesWith           CombinesWith      `json:"combinesWith"`
	Status                 string            `json:"status,omitempty"`
}

type Webhook struct {
	ID          string       `json:"id"`
	Topic       WebhookTopic `json:"topic"`
	CallbackURL string       `json:"callbackUrl"`
	Format      string       `json:"format"`
	CreatedAt   string       `json:"createdAt"`
}

type Shop struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	MyshopifyDomain string `json:"myshopifyDomain"`
	PrimaryDomain   string `json:"primaryDomain"`
	CurrencyCode    string `json:"currencyCode"`
}

type ShopDetails struct {
	Shop
	Description       string   `json:"description"`
	ContactEmail      string   `json:"contactEmail"`
	PlanName          string   `json:"planName"`
	IANATimezone      string   `json:"ianaTimezone"`
	WeightUnit        string   `json:"weightUnit"`
	ShipsToCountries  []string `json:"shipsToCountries"`
	BillingAddress    *Address `json:"billingAddress,omitempty"`
	EnabledCurrencies []string `json:"enabledPresentmentCurrencies"`
}
