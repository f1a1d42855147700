package stripe

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/launchforge/launchforge-backend/pkg/errors"
)

// CustomerParams carries the inputs for creating a provider customer.
type CustomerParams struct {
	TenantID       string
	TenantName     string
	Email          string
	IdempotencyKey string
}

// TrialParams carries the inputs for starting an auto-trial subscription.
type TrialParams struct {
	CustomerID     string
	PriceID        string
	TrialEnd       time.Time
	IdempotencyKey string
}

// CheckoutParams carries the inputs for a hosted checkout session.
type CheckoutParams struct {
	CustomerID string
	TenantID   string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// UsageParams carries the inputs for a pending one-time charge.
type UsageParams struct {
	CustomerID  string
	Amount      int64
	Currency    string
	Description string
}

// CreateCustomer creates a provider customer tagged with the owning tenant.
func (c *Client) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	params := &stripe.CustomerCreateParams{
		Email: stripe.String(p.Email),
		Metadata: map[string]string{
			"tenant_id":   p.TenantID,
			"tenant_name": p.TenantName,
		},
	}
	if p.TenantName != "" {
		params.Name = stripe.String(p.TenantName)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	start := time.Now()
	customer, err := c.api.V1Customers.Create(ctx, params)
	c.observe("create_customer", start, err)
	if err != nil {
		return "", c.wrap(err, "creating billing customer")
	}
	return customer.ID, nil
}

// UpdateCustomerEmail changes the billing contact email on the provider side.
func (c *Client) UpdateCustomerEmail(ctx context.Context, customerID, email string) error {
	params := &stripe.CustomerUpdateParams{
		Email: stripe.String(email),
	}

	start := time.Now()
	_, err := c.api.V1Customers.Update(ctx, customerID, params)
	c.observe("update_customer", start, err)
	if err != nil {
		return c.wrap(err, "updating billing customer email")
	}
	return nil
}

// GetBillingInfo reports the customer's billing email and whether a default
// payment method is attached.
func (c *Client) GetBillingInfo(ctx context.Context, customerID string) (*BillingInfo, error) {
	start := time.Now()
	customer, err := c.api.V1Customers.Retrieve(ctx, customerID, nil)
	c.observe("retrieve_customer", start, err)
	if err != nil {
		return nil, c.wrap(err, "retrieving billing customer")
	}
	info := &BillingInfo{BillingEmail: customer.Email}
	if customer.InvoiceSettings != nil && customer.InvoiceSettings.DefaultPaymentMethod != nil {
		info.HasPaymentMethod = true
	}
	return info, nil
}

// CreateTrialSubscription starts a trial that auto-cancels when no payment
// method is attached by trial end.
func (c *Client) CreateTrialSubscription(ctx context.Context, p TrialParams) (*Subscription, error) {
	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(p.CustomerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{Price: stripe.String(p.PriceID)},
		},
		TrialEnd: stripe.Int64(p.TrialEnd.Unix()),
		TrialSettings: &stripe.SubscriptionCreateTrialSettingsParams{
			EndBehavior: &stripe.SubscriptionCreateTrialSettingsEndBehaviorParams{
				MissingPaymentMethod: stripe.String("cancel"),
			},
		},
	}
	params.AddExpand("items.data.price.product")
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	start := time.Now()
	sub, err := c.api.V1Subscriptions.Create(ctx, params)
	c.observe("create_subscription", start, err)
	if err != nil {
		return nil, c.wrap(err, "creating trial subscription")
	}
	return subscriptionFromAPI(sub), nil
}

// ListSubscriptions returns the customer's subscriptions matching any of the
// requested statuses, ordered as the provider returns them.
func (c *Client) ListSubscriptions(ctx context.Context, customerID string, statuses ...SubscriptionStatus) ([]*Subscription, error) {
	var out []*Subscription
	for _, status := range statuses {
		params := &stripe.SubscriptionListParams{
			Customer: stripe.String(customerID),
			Status:   stripe.String(string(status)),
		}
		params.AddExpand("data.items.data.price.product")

		start := time.Now()
		var iterErr error
		for sub, err := range c.api.V1Subscriptions.List(ctx, params) {
			if err != nil {
				iterErr = err
				break
			}
			out = append(out, subscriptionFromAPI(sub))
		}
		c.observe("list_subscriptions", start, iterErr)
		if iterErr != nil {
			return nil, c.wrap(iterErr, "listing subscriptions")
		}
	}
	return out, nil
}

// GetSubscription retrieves a single subscription by id.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripe.SubscriptionRetrieveParams{}
	params.AddExpand("items.data.price.product")

	start := time.Now()
	sub, err := c.api.V1Subscriptions.Retrieve(ctx, subscriptionID, params)
	c.observe("retrieve_subscription", start, err)
	if err != nil {
		return nil, c.wrap(err, "retrieving subscription")
	}
	return subscriptionFromAPI(sub), nil
}

// UpdateSubscriptionPrice moves the subscription item to a new price with
// provider-native proration.
func (c *Client) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (*Subscription, error) {
	params := &stripe.SubscriptionUpdateParams{
		Items: []*stripe.SubscriptionUpdateItemParams{
			{
				ID:    stripe.String(itemID),
				Price: stripe.String(priceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.AddExpand("items.data.price.product")

	start := time.Now()
	sub, err := c.api.V1Subscriptions.Update(ctx, subscriptionID, params)
	c.observe("update_subscription", start, err)
	if err != nil {
		return nil, c.wrap(err, "updating subscription")
	}
	return subscriptionFromAPI(sub), nil
}

// CancelSubscription cancels the subscription immediately.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	start := time.Now()
	_, err := c.api.V1Subscriptions.Cancel(ctx, subscriptionID, &stripe.SubscriptionCancelParams{})
	c.observe("cancel_subscription", start, err)
	if err != nil {
		return c.wrap(err, "canceling subscription")
	}
	return nil
}

// CreateCheckoutSession returns a hosted checkout URL for the given price.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionCreateParams{
		Customer: stripe.String(p.CustomerID),
		Mode:     stripe.String("subscription"),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		Metadata: map[string]string{
			"tenant_id": p.TenantID,
		},
		SubscriptionData: &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: map[string]string{
				"tenant_id": p.TenantID,
			},
		},
	}

	start := time.Now()
	session, err := c.api.V1CheckoutSessions.Create(ctx, params)
	c.observe("create_checkout_session", start, err)
	if err != nil {
		return "", c.wrap(err, "creating checkout session")
	}
	return session.URL, nil
}

// CreatePortalSession returns a hosted billing portal URL.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionCreateParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}

	start := time.Now()
	session, err := c.api.V1BillingPortalSessions.Create(ctx, params)
	c.observe("create_portal_session", start, err)
	if err != nil {
		return "", c.wrap(err, "creating portal session")
	}
	return session.URL, nil
}

// CreateInvoiceItem attaches a pending one-time charge to the customer.
func (c *Client) CreateInvoiceItem(ctx context.Context, p UsageParams) (*UsageItem, error) {
	params := &stripe.InvoiceItemCreateParams{
		Customer:    stripe.String(p.CustomerID),
		Amount:      stripe.Int64(p.Amount),
		Currency:    stripe.String(p.Currency),
		Description: stripe.String(p.Description),
	}

	start := time.Now()
	item, err := c.api.V1InvoiceItems.Create(ctx, params)
	c.observe("create_invoice_item", start, err)
	if err != nil {
		return nil, c.wrap(err, "creating usage item")
	}
	return usageItemFromAPI(item), nil
}

// ListPendingInvoiceItems returns charges not yet swept into an invoice.
func (c *Client) ListPendingInvoiceItems(ctx context.Context, customerID string) ([]*UsageItem, error) {
	params := &stripe.InvoiceItemListParams{
		Customer: stripe.String(customerID),
		Pending:  stripe.Bool(true),
	}

	start := time.Now()
	out := []*UsageItem{}
	var iterErr error
	for item, err := range c.api.V1InvoiceItems.List(ctx, params) {
		if err != nil {
			iterErr = err
			break
		}
		out = append(out, usageItemFromAPI(item))
	}
	c.observe("list_invoice_items", start, iterErr)
	if iterErr != nil {
		return nil, c.wrap(iterErr, "listing usage items")
	}
	return out, nil
}

// ListActiveProducts returns the plans currently offered: active recurring
// prices whose product is active and priced above zero.
func (c *Client) ListActiveProducts(ctx context.Context) ([]*Product, error) {
	params := &stripe.PriceListParams{
		Active: stripe.Bool(true),
	}
	params.AddExpand("data.product")

	start := time.Now()
	out := []*Product{}
	var iterErr error
	for price, err := range c.api.V1Prices.List(ctx, params) {
		if err != nil {
			iterErr = err
			break
		}
		if price.UnitAmount <= 0 || price.Recurring == nil {
			continue
		}
		if price.Product == nil || !price.Product.Active {
			continue
		}
		out = append(out, productFromPrice(price))
	}
	c.observe("list_prices", start, iterErr)
	if iterErr != nil {
		return nil, c.wrap(iterErr, "listing products")
	}
	return out, nil
}

// ConstructEvent verifies a webhook payload against the signing secret.
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.signingSecret)
}

func (c *Client) observe(operation string, start time.Time, err error) {
	c.metrics.ObserveCall(operation, time.Since(start))
	if err != nil {
		c.metrics.IncFailure(operation)
	}
}

func (c *Client) wrap(err error, message string) error {
	if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.HTTPStatusCode == 404 {
		return errors.Wrap(errors.CodeNotFound, err, message)
	}
	return errors.Wrap(errors.CodeDependency, err, message)
}
