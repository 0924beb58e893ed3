package shopify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type addressNode struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Company       string `json:"company"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2"`
	City          string `json:"city"`
	Province      string `json:"province"`
	ProvinceCode  string `json:"provinceCode"`
	Country       string `json:"country"`
	CountryCodeV2 string `json:"countryCodeV2"`
	Zip           string `json:"zip"`
	Phone         string `json:"phone"`
}

func (n *addressNode) address() *Address {
	if n == nil {
		return nil
	}
	return &Address{
		FirstName:    n.FirstName,
		LastName:     n.LastName,
		Company:      n.Company,
		Address1:     n.Address1,
		Address2:     n.Address2,
		City:         n.City,
		Province:     n.Province,
		ProvinceCode: n.ProvinceCode,
		Country:      n.Country,
		CountryCode:  n.CountryCodeV2,
		Zip:          n.Zip,
		Phone:        n.Phone,
	}
}

type orderNode struct {
	ID                       string       `json:"id"`
	Name                     string       `json:"name"`
	CreatedAt                time.Time    `json:"createdAt"`
	CancelledAt              *time.Time   `json:"cancelledAt"`
	CancelReason             string       `json:"cancelReason"`
	DisplayFinancialStatus   string       `json:"displayFinancialStatus"`
	DisplayFulfillmentStatus string       `json:"displayFulfillmentStatus"`
	Email                    string       `json:"email"`
	Phone                    string       `json:"phone"`
	TotalPriceSet            moneyBag     `json:"totalPriceSet"`
	Customer                 *CustomerRef `json:"customer"`
	ShippingAddress          *addressNode `json:"shippingAddress"`
	LineItems                struct {
		Nodes []struct {
			ID               string       `json:"id"`
			Title            string       `json:"title"`
			Quantity         int          `json:"quantity"`
			OriginalTotalSet moneyBag     `json:"originalTotalSet"`
			Variant          *variantNode `json:"variant"`
		} `json:"nodes"`
	} `json:"lineItems"`
	Fulfillments []Fulfillment `json:"fulfillments"`
}

func (n orderNode) order() Order {
	o := Order{
		ID:                n.ID,
		Name:              n.Name,
		CreatedAt:         n.CreatedAt,
		CancelledAt:       n.CancelledAt,
		CancelReason:      n.CancelReason,
		FinancialStatus:   n.DisplayFinancialStatus,
		FulfillmentStatus: n.DisplayFulfillmentStatus,
		Email:             n.Email,
		Phone:             n.Phone,
		TotalPrice:        n.TotalPriceSet.ShopMoney,
		Customer:          n.Customer,
		ShippingAddress:   n.ShippingAddress.address(),
		Fulfillments:      n.Fulfillments,
	}
	o.LineItems = make([]LineItem, 0, len(n.LineItems.Nodes))
	for _, li := range n.LineItems.Nodes {
		item := LineItem{ID: li.ID, Title: li.Title, Quantity: li.Quantity, OriginalTotal: li.OriginalTotalSet.ShopMoney}
		if li.Variant != nil {
			v := li.Variant.variant()
			item.Variant = &v
		}
		o.LineItems = append(o.LineItems, item)
	}
	return o
}

// OrderStatus filters the order listing.
type OrderStatus string

const (
	OrderStatusAny       OrderStatus = "any"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusClosed    OrderStatus = "closed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderSortKey mirrors the remote OrderSortKeys enum.
type OrderSortKey string

const (
	OrderSortCreatedAt   OrderSortKey = "CREATED_AT"
	OrderSortProcessedAt OrderSortKey = "PROCESSED_AT"
	OrderSortUpdatedAt   OrderSortKey = "UPDATED_AT"
	OrderSortTotalPrice  OrderSortKey = "TOTAL_PRICE"
	OrderSortOrderNumber OrderSortKey = "ORDER_NUMBER"
	OrderSortID          OrderSortKey = "ID"
)

// OrdersQuery is the superset of every order listing filter.
type OrdersQuery struct {
	Limit         int
	Cursor        string
	Query         string
	Status        OrderStatus
	CustomerEmail string
	SortKey       OrderSortKey
	Reverse       bool
}

func (q OrdersQuery) search() string {
	var parts []string
	if s := strings.TrimSpace(q.Query); s != "" {
		parts = append(parts, "("+s+")")
	}
	if q.Status != "" && q.Status != OrderStatusAny {
		parts = append(parts, "status:"+string(q.Status))
	}
	if e := strings.TrimSpace(q.CustomerEmail); e != "" {
		parts = append(parts, `email:"`+searchEscape(e)+`"`)
	}
	return strings.Join(parts, " AND ")
}

// Orders returns up to q.Limit orders after q.Cursor. The returned cursor
// resumes exactly after the last order returned.
func (c *Client) Orders(ctx context.Context, q OrdersQuery) (Page[Order], error) {
	vars := map[string]any{"reverse": q.Reverse}
	if s := q.search(); s != "" {
		vars["query"] = s
	}
	if q.SortKey != "" {
		vars["sortKey"] = string(q.SortKey)
	}
	nodes, err := collect[orderNode](ctx, c, PageQuery{
		Op: "Orders", Query: queryOrders, Variables: vars, Connection: "orders",
	}, q.Cursor, q.Limit)
	out := Page[Order]{HasNextPage: nodes.HasNextPage, EndCursor: nodes.EndCursor}
	out.Items = make([]Order, 0, len(nodes.Items))
	for _, n := range nodes.Items {
		out.Items = append(out.Items, n.order())
	}
	return out, err
}

// Order reads a single order by id.
func (c *Client) Order(ctx context.Context, orderID string) (Order, error) {
	var resp struct {
		Order *orderNode `json:"order"`
	}
	if err := decode(ctx, c, "Order", Request{Query: queryOrder, Variables: map[string]any{"id": orderID}}, &resp); err != nil {
		return Order{}, err
	}
	if resp.Order == nil {
		return Order{}, notFound("Order", "order", orderID)
	}
	return resp.Order.order(), nil
}

type CancelReason string

const (
	CancelCustomer  CancelReason = "CUSTOMER"
	CancelDeclined  CancelReason = "DECLINED"
	CancelFraud     CancelReason = "FRAUD"
	CancelInventory CancelReason = "INVENTORY"
	CancelOther     CancelReason = "OTHER"
	CancelStaff     CancelReason = "STAFF"
)

// ParseCancelReason accepts any casing of a known reason.
func ParseCancelReason(s string) (CancelReason, error) {
	r := CancelReason(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case CancelCustomer, CancelDeclined, CancelFraud, CancelInventory, CancelOther, CancelStaff:
		return r, nil
	}
	return "", fmt.Errorf("unknown cancel reason %q", s)
}

type CancelOrderInput struct {
	OrderID        string
	Reason         CancelReason
	Restock        bool
	Refund         bool
	NotifyCustomer bool
	StaffNote      string
}

// CancelOrder cancels an open, unfulfilled order and returns it as re-read
// after the mutation. Orders already cancelled or fulfilled are rejected
// without contacting the mutation endpoint.
func (c *Client) CancelOrder(ctx context.Context, in CancelOrderInput) (Order, error) {
	const op = "OrderCancel"
	if in.Reason == "" {
		in.Reason = CancelOther
	}
	current, err := c.Order(ctx, in.OrderID)
	if err != nil {
		return Order{}, err
	}
	if current.Cancelled() {
		return Order{}, userError(op, "order is already cancelled", map[string]any{"orderId": current.ID},
			FieldError{Field: []string{"orderId"}, Message: "order is already cancelled", Code: "ALREADY_CANCELLED"})
	}
	if strings.EqualFold(current.FulfillmentStatus, FulfillmentStatusFulfilled) {
		return Order{}, userError(op, "fulfilled orders cannot be cancelled", map[string]any{"orderId": current.ID},
			FieldError{Field: []string{"orderId"}, Message: "fulfilled orders cannot be cancelled", Code: "INVALID"})
	}

	vars := map[string]any{
		"orderId":        in.OrderID,
		"reason":         string(in.Reason),
		"refund":         in.Refund,
		"restock":        in.Restock,
		"notifyCustomer": in.NotifyCustomer,
	}
	if in.StaffNote != "" {
		vars["staffNote"] = in.StaffNote
	}
	var resp struct {
		OrderCancel struct {
			Job *job `json:"job"`
		} `json:"orderCancel"`
	}
	if err := decode(ctx, c, op, Request{Query: mutationOrderCancel, Variables: vars}, &resp); err != nil {
		return Order{}, err
	}
	j, err := c.awaitJob(ctx, resp.OrderCancel.Job)
	if err != nil {
		return Order{}, err
	}
	updated, err := c.Order(ctx, in.OrderID)
	if err != nil {
		return Order{}, err
	}
	if !updated.Cancelled() {
		pending := &CancelPendingError{OrderID: in.OrderID, Order: updated}
		if j != nil {
			pending.JobID = j.ID
		}
		return Order{}, pending
	}
	return updated, nil
}

// jobPollAttempts bounds how often an asynchronous job is re-read.
const jobPollAttempts = 5

type job struct {
	ID   string `json:"id"`
	Done bool   `json:"done"`
}

// CancelPendingError reports a cancellation the store accepted but has not
// applied yet. Order is the state read after the job was last polled.
type CancelPendingError struct {
	OrderID string
	JobID   string
	Order   Order
}

func (e *CancelPendingError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("OrderCancel: cancellation of %s is still pending", e.OrderID)
	}
	return fmt.Sprintf("OrderCancel: cancellation of %s is still pending (job %s)", e.OrderID, e.JobID)
}

// awaitJob polls j until it reports done or jobPollAttempts is spent, using
// the retry policy's backoff between reads. It returns the last job seen.
func (c *Client) awaitJob(ctx context.Context, j *job) (*job, error) {
	if j == nil || j.Done || j.ID == "" {
		return j, nil
	}
	b := c.retry.backoff()
	for i := 0; i < jobPollAttempts; i++ {
		if err := c.retry.Sleep(ctx, b.NextBackOff()); err != nil {
			return j, nil
		}
		var resp struct {
			Job *job `json:"job"`
		}
		if err := decode(ctx, c, "Job", Request{Query: queryJob, Variables: map[string]any{"id": j.ID}}, &resp); err != nil {
			return j, err
		}
		if resp.Job == nil {
			return j, nil
		}
		j = resp.Job
		if j.Done {
			return j, nil
		}
	}
	c.log.Warnw("job still running", "job", j.ID, "polls", jobPollAttempts)
	return j, nil
}
