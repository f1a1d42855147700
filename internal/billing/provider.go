package billing

import (
	"context"

	"github.com/launchforge/launchforge-backend/pkg/stripe"
)

// ProviderClient exposes the subset of billing provider operations required
// by the reconciliation service.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, p stripe.CustomerParams) (string, error)
	UpdateCustomerEmail(ctx context.Context, customerID, email string) error
	GetBillingInfo(ctx context.Context, customerID string) (*stripe.BillingInfo, error)
	CreateTrialSubscription(ctx context.Context, p stripe.TrialParams) (*stripe.Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string, statuses ...stripe.SubscriptionStatus) ([]*stripe.Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	UpdateSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (*stripe.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	CreateCheckoutSession(ctx context.Context, p stripe.CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	CreateInvoiceItem(ctx context.Context, p stripe.UsageParams) (*stripe.UsageItem, error)
	ListPendingInvoiceItems(ctx context.Context, customerID string) ([]*stripe.UsageItem, error)
	ListActiveProducts(ctx context.Context) ([]*stripe.Product, error)
}
