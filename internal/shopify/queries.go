package shopify

// GraphQL documents. Each carries a named operation so the remote logs and
// test fakes can tell them apart.

const fragProduct = `
fragment ProductFields on Product {
  id
  title
  description
  handle
  variants(first: 20) {
    nodes { id title price sku inventoryPolicy }
  }
}`

const fragVariant = `
fragment VariantFields on ProductVariant {
  id
  title
  price
  sku
  inventoryPolicy
  product { id title }
}`

const fragAddress = `
fragment AddressFields on MailingAddress {
  firstName lastName company address1 address2 city
  province provinceCode country countryCodeV2 zip phone
}`

const fragOrder = `
fragment OrderFields on Order {
  id
  name
  createdAt
  cancelledAt
  cancelReason
  displayFinancialStatus
  displayFulfillmentStatus
  email
  phone
  totalPriceSet { shopMoney { amount currencyCode } }
  customer { id email firstName lastName }
  shippingAddress { ...AddressFields }
  lineItems(first: 50) {
    nodes {
      id
      title
      quantity
      originalTotalSet { shopMoney { amount currencyCode } }
      variant { id title price sku }
    }
  }
  fulfillments(first: 10) {
    id
    status
    createdAt
    trackingInfo(first: 5) { number company url }
  }
}` + fragAddress

const fragDraftOrder = `
fragment DraftOrderFields on DraftOrder {
  id
  name
  status
  email
  note2
  tags
  totalPriceSet { shopMoney { amount currencyCode } }
  lineItems(first: 50) {
    nodes { title quantity variant { id } }
  }
  shippingAddress { ...AddressFields }
  billingAddress { ...AddressFields }
  order { id name }
}` + fragAddress

const fragCustomer = `
fragment CustomerFields on Customer {
  id
  firstName
  lastName
  email
  phone
  tags
  numberOfOrders
  amountSpent { amount currencyCode }
  createdAt
}`

const fragDiscount = `
fragment DiscountFields on DiscountCodeNode {
  id
  codeDiscount {
    ... on DiscountCodeBasic {
      title
      status
      startsAt
      endsAt
      appliesOncePerCustomer
      codes(first: 1) { nodes { code } }
      combinesWith { productDiscounts orderDiscounts shippingDiscounts }
      customerGets {
        value {
          ... on DiscountPercentage { percentage }
          ... on DiscountAmount { amount { amount currencyCode } }
        }
      }
    }
  }
}`

const fragWebhook = `
fragment WebhookFields on WebhookSubscription {
  id
  topic
  format
  createdAt
  endpoint {
    ... on WebhookHttpEndpoint { callbackUrl }
  }
}`

const queryProducts = `
query Products($first: Int!, $after: String, $query: String) {
  products(first: $first, after: $after, query: $query) {
    nodes { ...ProductFields }
    pageInfo { hasNextPage endCursor }
  }
}` + fragProduct

const queryCollectionProducts = `
query CollectionProducts($id: ID!, $first: Int!, $after: String) {
  collection(id: $id) {
    products(first: $first, after: $after) {
      nodes { ...ProductFields }
      pageInfo { hasNextPage endCursor }
    }
  }
}` + fragProduct

const queryProductsByIDs = `
query ProductsByIDs($ids: [ID!]!) {
  nodes(ids: $ids) {
    ... on Product { ...ProductFields }
  }
}` + fragProduct

const queryVariantsByIDs = `
query VariantsByIDs($ids: [ID!]!) {
  nodes(ids: $ids) {
    ... on ProductVariant { ...VariantFields }
  }
}` + fragVariant

const queryCollections = `
query Collections($first: Int!, $after: String, $query: String) {
  collections(first: $first, after: $after, query: $query) {
    nodes { id title handle description productsCount { count } }
    pageInfo { hasNextPage endCursor }
  }
}`

const queryCustomers = `
query Customers($first: Int!, $after: String, $query: String) {
  customers(first: $first, after: $after, query: $query) {
    nodes { ...CustomerFields }
    pageInfo { hasNextPage endCursor }
  }
}` + fragCustomer

const mutationTagsAdd = `
mutation TagsAdd($id: ID!, $tags: [String!]!) {
  tagsAdd(id: $id, tags: $tags) {
    node { id }
    userErrors { field message }
  }
}`

const queryCustomer = `
query Customer($id: ID!) {
  customer(id: $id) { ...CustomerFields }
}` + fragCustomer

const queryOrders = `
query Orders($first: Int!, $after: String, $query: String, $sortKey: OrderSortKeys, $reverse: Boolean) {
  orders(first: $first, after: $after, query: $query, sortKey: $sortKey, reverse: $reverse) {
    nodes { ...OrderFields }
    pageInfo { hasNextPage endCursor }
  }
}` + fragOrder

const queryOrder = `
query Order($id: ID!) {
  order(id: $id) { ...OrderFields }
}` + fragOrder

const queryJob = `
query Job($id: ID!) {
  job(id: $id) { id done }
}`

const mutationOrderCancel = `
mutation OrderCancel($orderId: ID!, $reason: OrderCancelReason!, $refund: Boolean!, $restock: Boolean!, $notifyCustomer: Boolean, $staffNote: String) {
  orderCancel(orderId: $orderId, reason: $reason, refund: $refund, restock: $restock, notifyCustomer: $notifyCustomer, staffNote: $staffNote) {
    job { id done }
    userErrors: orderCancelUserErrors { field message code }
  }
}`

const mutationDraftOrderCreate = `
mutation DraftOrderCreate($input: DraftOrderInput!) {
  draftOrderCreate(input: $input) {
    draftOrder { ...DraftOrderFields }
    userErrors { field message }
  }
}` + fragDraftOrder

const queryDraftOrder = `
query DraftOrder($id: ID!) {
  draftOrder(id: $id) { ...DraftOrderFields }
}` + fragDraftOrder

const mutationDraftOrderComplete = `
mutation DraftOrderComplete($id: ID!) {
  draftOrderComplete(id: $id) {
    draftOrder { id status order { id name } }
    userErrors { field message }
  }
}`

const mutationDiscountCreate = `
mutation DiscountCodeBasicCreate($basicCodeDiscount: DiscountCodeBasicInput!) {
  discountCodeBasicCreate(basicCodeDiscount: $basicCodeDiscount) {
    codeDiscountNode { ...DiscountFields }
    userErrors { field message code }
  }
}` + fragDiscount

const queryDiscount = `
query Discount($id: ID!) {
  codeDiscountNode(id: $id) { ...DiscountFields }
}` + fragDiscount

const queryWebhooks = `
query Webhooks($first: Int!, $after: String, $topics: [WebhookSubscriptionTopic!]) {
  webhookSubscriptions(first: $first, after: $after, topics: $topics) {
    nodes { ...WebhookFields }
    pageInfo { hasNextPage endCursor }
  }
}` + fragWebhook

const mutationWebhookCreate = `
mutation WebhookSubscriptionCreate($topic: WebhookSubscriptionTopic!, $sub: WebhookSubscriptionInput!) {
  webhookSubscriptionCreate(topic: $topic, webhookSubscription: $sub) {
    webhookSubscription { ...WebhookFields }
    userErrors { field message }
  }
}` + fragWebhook

const mutationWebhookDelete = `
mutation WebhookSubscriptionDelete($id: ID!) {
  webhookSubscriptionDelete(id: $id) {
    deletedWebhookSubscriptionId
    userErrors { field message }
  }
}`

const queryShop = `
query Shop {
  shop {
    id name email myshopifyDomain currencyCode
    primaryDomain { host }
  }
}`

const queryShopDetails = `
query ShopDetails {
  shop {
    id name email myshopifyDomain currencyCode
    primaryDomain { host }
    description
    contactEmail
    plan { displayName }
    ianaTimezone
    weightUnit
    shipsToCountries
    enabledPresentmentCurrencies
    billingAddress { ...AddressFields }
  }
}` + fragAddress
