package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/launchforge/launchforge-backend/internal/customers"
	"github.com/launchforge/launchforge-backend/pkg/config"
	"github.com/launchforge/launchforge-backend/pkg/db/models"
	pkgerrors "github.com/launchforge/launchforge-backend/pkg/errors"
	"github.com/launchforge/launchforge-backend/pkg/logger"
	"github.com/launchforge/launchforge-backend/pkg/stripe"
)

// Identity carries the authenticated tenant context. Every service call
// receives it explicitly; nothing is read from ambient state.
type Identity struct {
	TenantID   string
	TenantName string
	Email      string
}

// UpdateSubscriptionInput captures a plan-change request.
type UpdateSubscriptionInput struct {
	NewPriceID   string
	BillingEmail string
}

// CheckoutInput captures a checkout session request.
type CheckoutInput struct {
	PriceID      string
	BillingEmail string
}

// UsageInput captures a pending one-time charge request.
type UsageInput struct {
	Amount      int64
	Currency    string
	Description string
}

// Service defines the billing reconciliation surface.
type Service interface {
	EnsureCustomer(ctx context.Context, identity Identity) (*models.Customer, error)
	GetActiveSubscription(ctx context.Context, identity Identity) (*stripe.Subscription, error)
	UpdateSubscription(ctx context.Context, identity Identity, subscriptionID string, input UpdateSubscriptionInput) (*stripe.Subscription, error)
	ListProducts(ctx context.Context) ([]*stripe.Product, error)
	CreateCheckoutSession(ctx context.Context, identity Identity, input CheckoutInput) (string, error)
	CreatePortalSession(ctx context.Context, identity Identity) (string, error)
	GetBillingInfo(ctx context.Context, identity Identity) (*stripe.BillingInfo, error)
	UpdateBillingEmail(ctx context.Context, identity Identity, email string) (string, error)
	AddUsage(ctx context.Context, identity Identity, input UsageInput) (*stripe.UsageItem, error)
	ListPendingUsage(ctx context.Context, identity Identity) ([]*stripe.UsageItem, error)
	GateForTenant(ctx context.Context, identity Identity) Decision
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Customers   customers.Repository
	Provider    ProviderClient
	Logger      *logger.Logger
	Billing     config.BillingConfig
	FrontendURL string
}

type service struct {
	customers   customers.Repository
	provider    ProviderClient
	logg        *logger.Logger
	cfg         config.BillingConfig
	frontendURL string
}

// NewService builds a billing service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Customers == nil {
		return nil, fmt.Errorf("customers repo required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("provider client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(params.FrontendURL) == "" {
		return nil, fmt.Errorf("frontend url required")
	}
	return &service{
		customers:   params.Customers,
		provider:    params.Provider,
		logg:        params.Logger,
		cfg:         params.Billing,
		frontendURL: strings.TrimRight(strings.TrimSpace(params.FrontendURL), "/"),
	}, nil
}

// EnsureCustomer resolves the tenant's billing customer, lazily creating the
// provider customer, the directory record and the auto-trial on first use.
// Racing first-requests are resolved through the directory's tenant_id
// uniqueness: the losing writer re-reads and adopts the winner.
func (s *service) EnsureCustomer(ctx context.Context, identity Identity) (*models.Customer, error) {
	tenantID := strings.TrimSpace(identity.TenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	ctx = s.logg.WithTenantID(ctx, tenantID)

	existing, err := s.customers.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	customerID, err := s.createProviderCustomer(ctx, tenantID, identity.TenantName, email)
	if err != nil {
		return nil, err
	}

	record := &models.Customer{
		ID:         customerID,
		TenantID:   tenantID,
		Email:      email,
		TenantName: strings.TrimSpace(identity.TenantName),
	}
	if err := s.customers.Create(ctx, record); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			winner, readErr := s.customers.FindByTenant(ctx, tenantID)
			if readErr != nil {
				return nil, readErr
			}
			if winner != nil {
				s.logg.Warn(ctx, "concurrent customer creation lost race, adopting existing record")
				return winner, nil
			}
		}
		return nil, err
	}

	if s.cfg.TrialEnabled() {
		if _, err := s.createAutoTrial(ctx, customerID); err != nil {
			return nil, err
		}
	}

	return record, nil
}

// GetActiveSubscription returns the single authoritative subscription for
// the tenant, canceling stale trials when a paid subscription coexists.
func (s *service) GetActiveSubscription(ctx context.Context, identity Identity) (*stripe.Subscription, error) {
	customer, err := s.EnsureCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithTenantID(ctx, customer.TenantID)

	subs, err := s.provider.ListSubscriptions(ctx, customer.ID, stripe.StatusActive, stripe.StatusTrialing)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}

	var paid, trial *stripe.Subscription
	var staleTrials []*stripe.Subscription
	for _, sub := range subs {
		if sub.IsTrial() {
			if trial == nil {
				trial = sub
			} else {
				staleTrials = append(staleTrials, sub)
			}
			continue
		}
		if paid == nil {
			paid = sub
		}
	}

	// A trial never survives once a paid plan exists, regardless of order.
	if paid != nil && trial != nil {
		staleTrials = append(staleTrials, trial)
		trial = nil
	}
	for _, stale := range staleTrials {
		if err := s.provider.CancelSubscription(ctx, stale.ID); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("failed to cancel stale trial subscription %s", stale.ID), err)
		}
	}

	if paid != nil {
		return paid, nil
	}
	return trial, nil
}

// UpdateSubscription moves the subscription to a new price with proration,
// returning the unchanged subscription when the price is already current.
func (s *service) UpdateSubscription(ctx context.Context, identity Identity, subscriptionID string, input UpdateSubscriptionInput) (*stripe.Subscription, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}
	newPriceID := strings.TrimSpace(input.NewPriceID)
	if newPriceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new price id is required")
	}

	customer, err := s.EnsureCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithTenantID(ctx, customer.TenantID)

	current, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if current.CustomerID != "" && current.CustomerID != customer.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	if email := strings.TrimSpace(input.BillingEmail); email != "" {
		if _, err := s.UpdateBillingEmail(ctx, identity, email); err != nil {
			return nil, err
		}
	}

	// No-op guard: same price means no provider mutation at all.
	if current.PriceID == newPriceID {
		return current, nil
	}

	updated, err := s.provider.UpdateSubscriptionPrice(ctx, subscriptionID, current.ItemID, newPriceID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListProducts returns the plans currently offered for selection.
func (s *service) ListProducts(ctx context.Context) ([]*stripe.Product, error) {
	return s.provider.ListActiveProducts(ctx)
}

// CreateCheckoutSession returns a hosted checkout URL for the given price.
func (s *service) CreateCheckoutSession(ctx context.Context, identity Identity, input CheckoutInput) (string, error) {
	priceID := strings.TrimSpace(input.PriceID)
	if priceID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "price id is required")
	}

	customer, err := s.EnsureCustomer(ctx, identity)
	if err != nil {
		return "", err
	}
	ctx = s.logg.WithTenantID(ctx, customer.TenantID)

	if email := strings.TrimSpace(input.BillingEmail); email != "" {
		if _, err := s.UpdateBillingEmail(ctx, identity, email); err != nil {
			return "", err
		}
	}

	return s.provider.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		CustomerID: customer.ID,
		TenantID:   customer.TenantID,
		PriceID:    priceID,
		SuccessURL: s.frontendURL + "/billing?checkout=success",
		CancelURL:  s.frontendURL + "/billing?checkout=canceled",
	})
}

// CreatePortalSession returns a hosted billing portal URL.
func (s *service) CreatePortalSession(ctx context.Context, identity Identity) (string, error) {
	customer, err := s.EnsureCustomer(ctx, identity)
	if err != nil {
		return "", err
	}
	return s.provider.CreatePortalSession(ctx, customer.ID, s.frontendURL+"/billing")
}

// GetBillingInfo reports the billing email and payment method presence.
func (s *service) GetBillingInfo(ctx context.Context, identity Identity) (*stripe.BillingInfo, error) {
	customer, err := s.EnsureCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}
	info, err := s.provider.GetBillingInfo(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if info.BillingEmail == "" {
		info.BillingEmail = customer.Email
	}
	return info, nil
}

// UpdateBillingEmail changes the billing contact on the provider and in the
// directory cache.
func (s *service) UpdateBillingEmail(ctx context.Context, identity Identity, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	customer, err := s.EnsureCustomer(ctx, identity)
	if err != nil {
		return "", err
	}
	if err := s.provider.UpdateCustomerEmail(ctx, customer.ID, email); err != nil {
		return "", err
	}
	if err := s.customers.UpdateEmail(ctx, customer.ID, email); err != nil {
		return "", err
	}
	return email, nil
}

// AddUsage attaches a pending one-time charge to the tenant's customer.
func (s *service) AddUsage(ctx context.Context, identity Identity, input UsageInput) (*stripe.UsageItem, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	currency := strings.TrimSpace(strings.ToLower(input.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	customer, err := s.EnsureCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.provider.CreateInvoiceItem(ctx, stripe.UsageParams{
		CustomerID:  customer.ID,
		Amount:      input.Amount,
		Currency:    currency,
		Description: description,
	})
}

// ListPendingUsage returns charges awaiting the next invoice.
func (s *service) ListPendingUsage(ctx context.Context, identity Identity) ([]*stripe.UsageItem, error) {
	customer, err := s.EnsureCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.provider.ListPendingInvoiceItems(ctx, customer.ID)
}

// createProviderCustomer creates the external customer under a bounded retry
// with a deterministic idempotency key, so retries never mint duplicates.
func (s *service) createProviderCustomer(ctx context.Context, tenantID, tenantName, email string) (string, error) {
	params := stripe.CustomerParams{
		TenantID:       tenantID,
		TenantName:     strings.TrimSpace(tenantName),
		Email:          email,
		IdempotencyKey: "customer-create-" + tenantID,
	}
	return backoff.RetryWithData(func() (string, error) {
		id, err := s.provider.CreateCustomer(ctx, params)
		return id, retryableOnly(err)
	}, s.retryPolicy(ctx))
}

func (s *service) createAutoTrial(ctx context.Context, customerID string) (*stripe.Subscription, error) {
	params := stripe.TrialParams{
		CustomerID:     customerID,
		PriceID:        s.cfg.TrialPriceID,
		TrialEnd:       time.Now().UTC().AddDate(0, 0, s.cfg.TrialDays),
		IdempotencyKey: "trial-create-" + customerID,
	}
	sub, err := backoff.RetryWithData(func() (*stripe.Subscription, error) {
		sub, err := s.provider.CreateTrialSubscription(ctx, params)
		return sub, retryableOnly(err)
	}, s.retryPolicy(ctx))
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, fmt.Sprintf("auto-trial subscription %s created", sub.ID))
	return sub, nil
}

func (s *service) retryPolicy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 10 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(policy, 3), ctx)
}

// retryableOnly marks everything except provider dependency failures as
// permanent so validation and not-found outcomes surface immediately.
func retryableOnly(err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		return err
	}
	return backoff.Permanent(err)
}
