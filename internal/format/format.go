// Package format renders shopify values as the plain text returned to tool
// callers. Every function is pure.
package format

import (
	"fmt"
	"strings"
	"time"

	"shoptools/internal/shopify"
)

const na = "N/A"

// NoOrders is the text for an empty order listing.
const NoOrders = "No orders found matching the criteria."

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func money(m shopify.Money) string {
	return strings.TrimSpace(m.Amount.String() + " " + m.CurrencyCode)
}

func ts(t time.Time) string {
	if t.IsZero() {
		return na
	}
	return t.UTC().Format(time.RFC3339)
}

func join[T any](items []T, sep, empty string, f func(T) string) string {
	if len(items) == 0 {
		return empty
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = f(it)
	}
	return strings.Join(parts, sep)
}

func Product(p shopify.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", p.Title)
	fmt.Fprintf(&b, "ID: %s\n", p.ID)
	fmt.Fprintf(&b, "Description: %s\n", or(p.Description, na))
	fmt.Fprintf(&b, "Handle: %s\n", p.Handle)
	b.WriteString("Variants:")
	if len(p.Variants) == 0 {
		b.WriteString(" none")
	}
	for _, v := range p.Variants {
		b.WriteString("\n")
		b.WriteString(indent(Variant(v), "  "))
	}
	return b.String()
}

func Products(ps []shopify.Product) string {
	return join(ps, "\n---\n", "No products found.", Product)
}

func Variant(v shopify.Variant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Variant: %s\n", v.Title)
	fmt.Fprintf(&b, "ID: %s\n", v.ID)
	fmt.Fprintf(&b, "Price: %s\n", v.Price.String())
	fmt.Fprintf(&b, "SKU: %s\n", or(v.SKU, na))
	fmt.Fprintf(&b, "Inventory policy: %s", or(v.InventoryPolicy, na))
	if v.Product != nil {
		fmt.Fprintf(&b, "\nProduct: %s (%s)", v.Product.Title, v.Product.ID)
	}
	return b.String()
}

func Variants(vs []shopify.Variant) string {
	return join(vs, "\n---\n", "No variants found.", Variant)
}

func Collection(c shopify.Collection) string {
	return fmt.Sprintf("Collection: %s\nID: %s\nHandle: %s\nProducts: %d\nDescription: %s",
		c.Title, c.ID, c.Handle, c.ProductsCount, or(c.Description, na))
}

func Collections(cs []shopify.Collection) string {
	return join(cs, "\n---\n", "No collections found.", Collection)
}

// Order renders the numeric display ids, the first fulfillment and its first
// tracking record.
func Order(o shopify.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order name: %s\n", o.Name)
	fmt.Fprintf(&b, "Order ID: %s\n", shopify.DisplayID(o.ID))
	fmt.Fprintf(&b, "Created At: %s\n", ts(o.CreatedAt))
	fmt.Fprintf(&b, "Status: %s\n", or(o.FinancialStatus, na))
	fmt.Fprintf(&b, "Fulfillment Status: %s\n", or(o.FulfillmentStatus, na))
	if o.Cancelled() {
		fmt.Fprintf(&b, "Cancelled At: %s (%s)\n", ts(*o.CancelledAt), or(o.CancelReason, na))
	}
	fmt.Fprintf(&b, "Email: %s\n", or(o.Email, na))
	fmt.Fprintf(&b, "Phone: %s\n", or(o.Phone, na))
	fmt.Fprintf(&b, "\nTotal Price: %s\n", money(o.TotalPrice))

	b.WriteString("\nCustomer: ")
	if o.Customer == nil {
		b.WriteString("No customer information\n")
	} else {
		fmt.Fprintf(&b, "\n  ID: %s\n  Email: %s\n", shopify.DisplayID(o.Customer.ID), or(o.Customer.Email, na))
	}

	b.WriteString("\nShipping Address: ")
	if o.ShippingAddress == nil {
		b.WriteString("No shipping address\n")
	} else {
		fmt.Fprintf(&b, "\n  Province: %s\n  Country: %s\n", or(o.ShippingAddress.ProvinceCode, na), or(o.ShippingAddress.CountryCode, na))
	}

	b.WriteString("\nDetails: ")
	if len(o.LineItems) == 0 {
		b.WriteString("No items\n")
	}
	for _, li := range o.LineItems {
		fmt.Fprintf(&b, "\n  Title: %s\n  Quantity: %d\n  Price: %s\n  Variant: ", li.Title, li.Quantity, money(li.OriginalTotal))
		if li.Variant == nil {
			b.WriteString("No variant information\n")
			continue
		}
		fmt.Fprintf(&b, "\n    Title: %s\n    SKU: %s\n    Price: %s\n", li.Variant.Title, or(li.Variant.SKU, na), li.Variant.Price.String())
	}

	b.WriteString("\n")
	b.WriteString(fulfillment(o.Fulfillments))
	return b.String()
}

func fulfillment(fs []shopify.Fulfillment) string {
	if len(fs) == 0 {
		return "No fulfillment information"
	}
	f := fs[0]
	s := fmt.Sprintf("Fulfillment Status: %s\nFulfilled At: %s", or(f.Status, na), ts(f.CreatedAt))
	if len(f.TrackingInfo) > 0 {
		t := f.TrackingInfo[0]
		s += fmt.Sprintf("\nTracking Number: %s\nTracking Company: %s\nTracking URL: %s", or(t.Number, na), or(t.Company, na), or(t.URL, na))
	}
	return s
}

func Orders(orders []shopify.Order) string {
	return join(orders, "\n---\n", NoOrders, Order)
}

// OrderPage appends the continuation cursor when more orders exist.
func OrderPage(p shopify.Page[shopify.Order]) string {
	s := Orders(p.Items)
	if p.HasNextPage {
		s += "\n\nMore orders available. Next cursor: " + p.EndCursor
	}
	return s
}

func Customer(c shopify.Customer) string {
	var b strings.Builder
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	fmt.Fprintf(&b, "Customer: %s\n", or(name, na))
	fmt.Fprintf(&b, "ID: %s\n", shopify.DisplayID(c.ID))
	fmt.Fprintf(&b, "Email: %s\n", or(c.Email, na))
	fmt.Fprintf(&b, "Phone: %s\n", or(c.Phone, na))
	fmt.Fprintf(&b, "Orders: %d\n", c.OrdersCount)
	if c.AmountSpent != nil {
		fmt.Fprintf(&b, "Amount Spent: %s\n", money(*c.AmountSpent))
	}
	fmt.Fprintf(&b, "Tags: %s", or(strings.Join(c.Tags, ", "), "none"))
	return b.String()
}

func CustomerPage(p shopify.Page[shopify.Customer]) string {
	s := join(p.Items, "\n---\n", "No customers found.", Customer)
	if p.HasNextPage {
		s += "\n\nMore customers available. Next cursor: " + p.EndCursor
	}
	return s
}

func Discount(d shopify.Discount) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Discount: %s\n", d.Title)
	fmt.Fprintf(&b, "ID: %s\n", d.ID)
	fmt.Fprintf(&b, "Code: %s\n", d.Code)
	switch d.ValueType {
	case shopify.DiscountPercentage:
		fmt.Fprintf(&b, "Value: %s%%\n", d.Value.Shift(2).String())
	default:
		fmt.Fprintf(&b, "Value: %s off\n", d.Value.String())
	}
	fmt.Fprintf(&b, "Starts At: %s\n", ts(d.StartsAt))
	if d.EndsAt != nil {
		fmt.Fprintf(&b, "Ends At: %s\n", ts(*d.EndsAt))
	}
	fmt.Fprintf(&b, "Once Per Customer: %t\n", d.AppliesOncePerCustomer)
	fmt.Fprintf(&b, "Status: %s", or(d.Status, na))
	return b.String()
}

func DraftOrder(d shopify.DraftOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft Order: %s\n", d.Name)
	fmt.Fprintf(&b, "ID: %s\n", d.ID)
	fmt.Fprintf(&b, "Status: %s\n", d.Status)
	fmt.Fprintf(&b, "Email: %s\n", or(d.Email, na))
	if d.TotalPrice != nil {
		fmt.Fprintf(&b, "Total Price: %s\n", money(*d.TotalPrice))
	}
	b.WriteString("Line Items:")
	for _, li := range d.LineItems {
		fmt.Fprintf(&b, "\n  %d x %s (%s)", li.Quantity, or(li.Title, na), li.VariantID)
	}
	if d.Order != nil {
		fmt.Fprintf(&b, "\nOrder: %s (%s)", d.Order.Name, shopify.DisplayID(d.Order.ID))
	}
	return b.String()
}

func CompletedDraft(draftID string, ref shopify.OrderRef) string {
	return fmt.Sprintf("Draft order %s completed.\nOrder: %s\nOrder ID: %s", shopify.DisplayID(draftID), ref.Name, shopify.DisplayID(ref.ID))
}

func Webhook(w shopify.Webhook) string {
	return fmt.Sprintf("Webhook: %s\nTopic: %s\nCallback URL: %s\nFormat: %s",
		w.ID, w.Topic, w.CallbackURL, or(w.Format, na))
}

func Unsubscribed(id string) string {
	return "Webhook " + id + " deleted."
}

func Shop(s shopify.Shop) string {
	return fmt.Sprintf("Shop: %s\nID: %s\nEmail: %s\nDomain: %s\nPrimary Domain: %s\nCurrency: %s",
		s.Name, s.ID, or(s.Email, na), s.MyshopifyDomain, or(s.PrimaryDomain, na), s.CurrencyCode)
}

func ShopDetails(s shopify.ShopDetails) string {
	var b strings.Builder
	b.WriteString(Shop(s.Shop))
	fmt.Fprintf(&b, "\nDescription: %s", or(s.Description, na))
	fmt.Fprintf(&b, "\nContact Email: %s", or(s.ContactEmail, na))
	fmt.Fprintf(&b, "\nPlan: %s", or(s.PlanName, na))
	fmt.Fprintf(&b, "\nTimezone: %s", or(s.IANATimezone, na))
	fmt.Fprintf(&b, "\nWeight Unit: %s", or(s.WeightUnit, na))
	fmt.Fprintf(&b, "\nShips To: %s", or(strings.Join(s.ShipsToCountries, ", "), na))
	fmt.Fprintf(&b, "\nCurrencies: %s", or(strings.Join(s.EnabledCurrencies, ", "), na))
	if a := s.BillingAddress; a != nil {
		fmt.Fprintf(&b, "\nBilling Address: %s", or(strings.Join(nonEmpty(a.Address1, a.City, a.ProvinceCode, a.Zip, a.CountryCode), ", "), na))
	}
	return b.String()
}

func nonEmpty(ss ...string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
