package shopify

import "context"

type shopNode struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	MyshopifyDomain string `json:"myshopifyDomain"`
	CurrencyCode    string `json:"currencyCode"`
	PrimaryDomain   *struct {
		Host string `json:"host"`
	} `json:"primaryDomain"`
	Description  string `json:"description"`
	ContactEmail string `json:"contactEmail"`
	Plan         *struct {
		DisplayName string `json:"displayName"`
	} `json:"plan"`
	IANATimezone      string       `json:"ianaTimezone"`
	WeightUnit        string       `json:"weightUnit"`
	ShipsToCountries  []string     `json:"shipsToCountries"`
	EnabledCurrencies []string     `json:"enabledPresentmentCurrencies"`
	BillingAddress    *addressNode `json:"billingAddress"`
}

func (n shopNode) shop() Shop {
	s := Shop{ID: n.ID, Name: n.Name, Email: n.Email, MyshopifyDomain: n.MyshopifyDomain, CurrencyCode: n.CurrencyCode}
	if n.PrimaryDomain != nil {
		s.PrimaryDomain = n.PrimaryDomain.Host
	}
	return s
}

func (c *Client) readShop(ctx context.Context, op, query string) (shopNode, error) {
	var resp struct {
		Shop *shopNode `json:"shop"`
	}
	if err := decode(ctx, c, op, Request{Query: query}, &resp); err != nil {
		return shopNode{}, err
	}
	if resp.Shop == nil {
		return shopNode{}, &Error{Kind: KindProtocol, Op: op, Message: "shop missing from response"}
	}
	return *resp.Shop, nil
}

// Shop returns the basic identity of the store the client addresses.
func (c *Client) Shop(ctx context.Context) (Shop, error) {
	n, err := c.readShop(ctx, "Shop", queryShop)
	if err != nil {
		return Shop{}, err
	}
	return n.shop(), nil
}

func (c *Client) ShopDetails(ctx context.Context) (ShopDetails, error) {
	n, err := c.readShop(ctx, "ShopDetails", queryShopDetails)
	if err != nil {
		return ShopDetails{}, err
	}
	d := ShopDetails{
		Shop:              n.shop(),
		Description:       n.Description,
		ContactEmail:      n.ContactEmail,
		IANATimezone:      n.IANATimezone,
		WeightUnit:        n.WeightUnit,
		ShipsToCountries:  n.ShipsToCountries,
		EnabledCurrencies: n.EnabledCurrencies,
		BillingAddress:    n.BillingAddress.address(),
	}
	if n.Plan != nil {
		d.PlanName = n.Plan.DisplayName
	}
	return d, nil
}
