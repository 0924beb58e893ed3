package shopify

import (
	"context"
	"fmt"
	"strings"
)

// WebhookTopic is the remote WebhookSubscriptionTopic enum, restricted to
// the topics this service manages.
type WebhookTopic string

const (
	TopicAppUninstalled     WebhookTopic = "APP_UNINSTALLED"
	TopicCollectionsCreate  WebhookTopic = "COLLECTIONS_CREATE"
	TopicCollectionsUpdate  WebhookTopic = "COLLECTIONS_UPDATE"
	TopicCollectionsDelete  WebhookTopic = "COLLECTIONS_DELETE"
	TopicCustomersCreate    WebhookTopic = "CUSTOMERS_CREATE"
	TopicCustomersUpdate    WebhookTopic = "CUSTOMERS_UPDATE"
	TopicCustomersDelete    WebhookTopic = "CUSTOMERS_DELETE"
	TopicDraftOrdersCreate  WebhookTopic = "DRAFT_ORDERS_CREATE"
	TopicDraftOrdersUpdate  WebhookTopic = "DRAFT_ORDERS_UPDATE"
	TopicDraftOrdersDelete  WebhookTopic = "DRAFT_ORDERS_DELETE"
	TopicFulfillmentsCreate WebhookTopic = "FULFILLMENTS_CREATE"
	TopicFulfillmentsUpdate WebhookTopic = "FULFILLMENTS_UPDATE"
	TopicInventoryUpdate    WebhookTopic = "INVENTORY_LEVELS_UPDATE"
	TopicOrdersCreate       WebhookTopic = "ORDERS_CREATE"
	TopicOrdersUpdated      WebhookTopic = "ORDERS_UPDATED"
	TopicOrdersPaid         WebhookTopic = "ORDERS_PAID"
	TopicOrdersCancelled    WebhookTopic = "ORDERS_CANCELLED"
	TopicOrdersFulfilled    WebhookTopic = "ORDERS_FULFILLED"
	TopicOrdersDelete       WebhookTopic = "ORDERS_DELETE"
	TopicProductsCreate     WebhookTopic = "PRODUCTS_CREATE"
	TopicProductsUpdate     WebhookTopic = "PRODUCTS_UPDATE"
	TopicProductsDelete     WebhookTopic = "PRODUCTS_DELETE"
	TopicRefundsCreate      WebhookTopic = "REFUNDS_CREATE"
	TopicShopUpdate         WebhookTopic = "SHOP_UPDATE"
)

var webhookTopics = map[WebhookTopic]struct{}{
	TopicAppUninstalled: {}, TopicCollectionsCreate: {}, TopicCollectionsUpdate: {}, TopicCollectionsDelete: {},
	TopicCustomersCreate: {}, TopicCustomersUpdate: {}, TopicCustomersDelete: {},
	TopicDraftOrdersCreate: {}, TopicDraftOrdersUpdate: {}, TopicDraftOrdersDelete: {},
	TopicFulfillmentsCreate: {}, TopicFulfillmentsUpdate: {}, TopicInventoryUpdate: {},
	TopicOrdersCreate: {}, TopicOrdersUpdated: {}, TopicOrdersPaid: {}, TopicOrdersCancelled: {},
	TopicOrdersFulfilled: {}, TopicOrdersDelete: {},
	TopicProductsCreate: {}, TopicProductsUpdate: {}, TopicProductsDelete: {},
	TopicRefundsCreate: {}, TopicShopUpdate: {},
}

// ParseWebhookTopic accepts both the enum spelling (ORDERS_CREATE) and the
// REST spelling (orders/create).
func ParseWebhookTopic(s string) (WebhookTopic, error) {
	t := WebhookTopic(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "/", "_")))
	if _, ok := webhookTopics[t]; !ok {
		return "", fmt.Errorf("unknown webhook topic %q", s)
	}
	return t, nil
}

type webhookNode struct {
	ID        string       `json:"id"`
	Topic     WebhookTopic `json:"topic"`
	Format    string       `json:"format"`
	CreatedAt string       `json:"createdAt"`
	Endpoint  *struct {
		CallbackURL string `json:"callbackUrl"`
	} `json:"endpoint"`
}

func (n webhookNode) webhook() Webhook {
	w := Webhook{ID: n.ID, Topic: n.Topic, Format: n.Format, CreatedAt: n.CreatedAt}
	if n.Endpoint != nil {
		w.CallbackURL = n.Endpoint.CallbackURL
	}
	return w
}

// SubscribeWebhook registers callbackURL for topic. It is not idempotent:
// callers that must not duplicate subscriptions check FindWebhook first.
func (c *Client) SubscribeWebhook(ctx context.Context, topic WebhookTopic, callbackURL string) (Webhook, error) {
	const op = "WebhookSubscriptionCreate"
	var resp struct {
		WebhookSubscriptionCreate struct {
			WebhookSubscription *webhookNode `json:"webhookSubscription"`
		} `json:"webhookSubscriptionCreate"`
	}
	req := Request{Query: mutationWebhookCreate, Variables: map[string]any{
		"topic": string(topic),
		"sub":   map[string]any{"callbackUrl": callbackURL, "format": "JSON"},
	}}
	if err := decode(ctx, c, op, req, &resp); err != nil {
		return Webhook{}, err
	}
	if resp.WebhookSubscriptionCreate.WebhookSubscription == nil {
		return Webhook{}, &Error{Kind: KindProtocol, Op: op, Message: "subscription missing from payload"}
	}
	return resp.WebhookSubscriptionCreate.WebhookSubscription.webhook(), nil
}

// FindWebhook walks every subscription for topic and returns the one
// delivering to callbackURL.
func (c *Client) FindWebhook(ctx context.Context, topic WebhookTopic, callbackURL string) (Webhook, error) {
	nodes, err := FetchAll[webhookNode](ctx, c, PageQuery{
		Op:         "Webhooks",
		Query:      queryWebhooks,
		Variables:  map[string]any{"first": MaxPageSize, "topics": []string{string(topic)}},
		Connection: "webhookSubscriptions",
	}, WalkOptions{})
	if err != nil {
		return Webhook{}, err
	}
	for _, n := range nodes {
		w := n.webhook()
		if w.CallbackURL == callbackURL {
			return w, nil
		}
	}
	return Webhook{}, &Error{Kind: KindNotFound, Op: "Webhooks", Message: fmt.Sprintf("no %s subscription for %s", topic, callbackURL),
		Detail: map[string]any{"topic": string(topic), "callbackUrl": callbackURL}}
}

// UnsubscribeWebhook deletes a subscription and returns the deleted id.
func (c *Client) UnsubscribeWebhook(ctx context.Context, id string) (string, error) {
	const op = "WebhookSubscriptionDelete"
	var resp struct {
		WebhookSubscriptionDelete struct {
			DeletedID *string `json:"deletedWebhookSubscriptionId"`
		} `json:"webhookSubscriptionDelete"`
	}
	if err := decode(ctx, c, op, Request{Query: mutationWebhookDelete, Variables: map[string]any{"id": id}}, &resp); err != nil {
		return "", err
	}
	if resp.WebhookSubscriptionDelete.DeletedID == nil {
		return "", userError(op, "webhook subscription does not exist", map[string]any{"id": id},
			FieldError{Field: []string{"id"}, Message: "webhook subscription does not exist"})
	}
	return *resp.WebhookSubscriptionDelete.DeletedID, nil
}
