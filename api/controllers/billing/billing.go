package billing

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/launchforge/launchforge-backend/api/middleware"
	"github.com/launchforge/launchforge-backend/api/responses"
	"github.com/launchforge/launchforge-backend/api/validators"
	billingsvc "github.com/launchforge/launchforge-backend/internal/billing"
	pkgerrors "github.com/launchforge/launchforge-backend/pkg/errors"
	"github.com/launchforge/launchforge-backend/pkg/logger"
	"github.com/launchforge/launchforge-backend/pkg/stripe"
)

// Service describes the billing methods used by the HTTP controllers.
type Service interface {
	GetActiveSubscription(ctx context.Context, identity billingsvc.Identity) (*stripe.Subscription, error)
	UpdateSubscription(ctx context.Context, identity billingsvc.Identity, subscriptionID string, input billingsvc.UpdateSubscriptionInput) (*stripe.Subscription, error)
	ListProducts(ctx context.Context) ([]*stripe.Product, error)
	CreateCheckoutSession(ctx context.Context, identity billingsvc.Identity, input billingsvc.CheckoutInput) (string, error)
	CreatePortalSession(ctx context.Context, identity billingsvc.Identity) (string, error)
	GetBillingInfo(ctx context.Context, identity billingsvc.Identity) (*stripe.BillingInfo, error)
	UpdateBillingEmail(ctx context.Context, identity billingsvc.Identity, email string) (string, error)
	AddUsage(ctx context.Context, identity billingsvc.Identity, input billingsvc.UsageInput) (*stripe.UsageItem, error)
	ListPendingUsage(ctx context.Context, identity billingsvc.Identity) ([]*stripe.UsageItem, error)
	GateForTenant(ctx context.Context, identity billingsvc.Identity) billingsvc.Decision
}

type productResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	PriceID       string `json:"price_id"`
	PriceAmount   int64  `json:"price_amount"`
	PriceDisplay  string `json:"price_display"`
	PriceCurrency string `json:"price_currency"`
	PriceInterval string `json:"price_interval,omitempty"`
}

type checkoutRequest struct {
	PriceID      string `json:"price_id" validate:"required"`
	BillingEmail string `json:"billing_email" validate:"omitempty,email"`
}

type updateSubscriptionRequest struct {
	NewPriceID   string `json:"new_price_id" validate:"required"`
	BillingEmail string `json:"billing_email" validate:"omitempty,email"`
}

type billingEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type usageRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"required"`
	Currency    string `json:"currency"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type gateResponse struct {
	Access  string `json:"access"`
	Allowed bool   `json:"allowed"`
}

func identityFromRequest(r *http.Request) (billingsvc.Identity, error) {
	ctx := r.Context()
	tenantID := middleware.TenantIDFromContext(ctx)
	if tenantID == "" {
		return billingsvc.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return billingsvc.Identity{
		TenantID:   tenantID,
		TenantName: middleware.TenantNameFromContext(ctx),
		Email:      middleware.EmailFromContext(ctx),
	}, nil
}

// Products lists the plans available for selection.
func Products(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		products, err := svc.ListProducts(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			out = append(out, productToResponse(p))
		}
		responses.WriteSuccess(w, out)
	}
}

func productToResponse(p *stripe.Product) productResponse {
	display := decimal.NewFromInt(p.PriceAmount).Shift(-2).StringFixed(2)
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		PriceID:       p.PriceID,
		PriceAmount:   p.PriceAmount,
		PriceDisplay:  display,
		PriceCurrency: p.PriceCurrency,
		PriceInterval: string(p.PriceInterval),
	}
}

// Subscription returns the tenant's authoritative subscription, or null
// when the tenant has none.
func Subscription(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.GetActiveSubscription(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

// UpdateSubscription switches the subscription onto a new price, with an
// optional billing email change.
func UpdateSubscription(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		subscriptionID := strings.TrimSpace(chi.URLParam(r, "subscriptionId"))
		if subscriptionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required"))
			return
		}

		var payload updateSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.UpdateSubscription(ctx, identity, subscriptionID, billingsvc.UpdateSubscriptionInput{
			NewPriceID:   strings.TrimSpace(payload.NewPriceID),
			BillingEmail: strings.TrimSpace(payload.BillingEmail),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

// Checkout creates a hosted checkout session for a paid plan.
func Checkout(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		url, err := svc.CreateCheckoutSession(ctx, identity, billingsvc.CheckoutInput{
			PriceID:      strings.TrimSpace(payload.PriceID),
			BillingEmail: strings.TrimSpace(payload.BillingEmail),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, urlResponse{URL: url})
	}
}

// Portal creates a hosted billing portal session.
func Portal(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		url, err := svc.CreatePortalSession(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, urlResponse{URL: url})
	}
}

// BillingInfo returns the tenant's billing contact and payment method state.
func BillingInfo(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		info, err := svc.GetBillingInfo(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

// UpdateBillingEmail changes the billing contact email.
func UpdateBillingEmail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload billingEmailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		email, err := svc.UpdateBillingEmail(ctx, identity, strings.TrimSpace(payload.Email))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"billing_email": email})
	}
}

// AddUsage records a pending one-time charge for the next invoice.
func AddUsage(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload usageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		item, err := svc.AddUsage(ctx, identity, billingsvc.UsageInput{
			Amount:      payload.Amount,
			Currency:    strings.TrimSpace(payload.Currency),
			Description: strings.TrimSpace(payload.Description),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// ListUsage lists the pending one-time charges not yet invoiced.
func ListUsage(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListPendingUsage(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if items == nil {
			items = []*stripe.UsageItem{}
		}
		responses.WriteSuccess(w, items)
	}
}

// Gate reports whether the tenant currently has product access.
func Gate(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		decision := svc.GateForTenant(ctx, identity)
		responses.WriteSuccess(w, gateResponse{
			Access:  string(decision),
			Allowed: decision.Allowed(),
		})
	}
}
