package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"github.com/launchforge/launchforge-backend/internal/billing"
	"github.com/launchforge/launchforge-backend/internal/customers"
	"github.com/launchforge/launchforge-backend/pkg/db/models"
	pkgerrors "github.com/launchforge/launchforge-backend/pkg/errors"
	"github.com/launchforge/launchforge-backend/pkg/logger"
)

type ServiceParams struct {
	Billing   billing.Service
	Customers customers.Repository
	Logger    *logger.Logger
}

// Service reacts to provider lifecycle events by re-running reconciliation
// for the affected tenant.
type Service struct {
	billing   billing.Service
	customers customers.Repository
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Billing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing service required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customers repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		billing:   params.Billing,
		customers: params.Customers,
		logg:      params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		customerID := ""
		if session.Customer != nil {
			customerID = session.Customer.ID
		}
		return s.reconcileTenant(ctx, session.Metadata["tenant_id"], customerID)

	case stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		customerID := ""
		if sub.Customer != nil {
			customerID = sub.Customer.ID
		}
		return s.reconcileTenant(ctx, sub.Metadata["tenant_id"], customerID)

	default:
		return nil
	}
}

// reconcileTenant resolves the directory record for the event's tenant and
// re-derives the authoritative subscription, which also sweeps stale trials.
func (s *Service) reconcileTenant(ctx context.Context, tenantID, customerID string) error {
	record, err := s.lookupRecord(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	if record == nil {
		s.logg.Warn(ctx, fmt.Sprintf("event references unknown tenant %q / customer %q, skipping", tenantID, customerID))
		return nil
	}

	ctx = s.logg.WithTenantID(ctx, record.TenantID)
	if _, err := s.billing.GetActiveSubscription(ctx, billing.Identity{
		TenantID:   record.TenantID,
		TenantName: record.TenantName,
		Email:      record.Email,
	}); err != nil {
		return err
	}
	s.logg.Info(ctx, "subscription state reconciled from provider event")
	return nil
}

func (s *Service) lookupRecord(ctx context.Context, tenantID, customerID string) (*models.Customer, error) {
	if tenantID != "" {
		found, err := s.customers.FindByTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	if customerID == "" {
		return nil, nil
	}
	return s.customers.FindByID(ctx, customerID)
}
