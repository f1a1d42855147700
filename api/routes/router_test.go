package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/launchforge/launchforge-backend/internal/billing"
	"github.com/launchforge/launchforge-backend/pkg/config"
	"github.com/launchforge/launchforge-backend/pkg/db/models"
	"github.com/launchforge/launchforge-backend/pkg/logger"
	"github.com/launchforge/launchforge-backend/pkg/session"
	"github.com/launchforge/launchforge-backend/pkg/stripe"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubBillingService struct{}

func (stubBillingService) EnsureCustomer(ctx context.Context, identity billing.Identity) (*models.Customer, error) {
	return &models.Customer{ID: "cus_1", TenantID: identity.TenantID}, nil
}

func (stubBillingService) GetActiveSubscription(ctx context.Context, identity billing.Identity) (*stripe.Subscription, error) {
	return nil, nil
}

func (stubBillingService) UpdateSubscription(ctx context.Context, identity billing.Identity, subscriptionID string, input billing.UpdateSubscriptionInput) (*stripe.Subscription, error) {
	return nil, nil
}

func (stubBillingService) ListProducts(ctx context.Context) ([]*stripe.Product, error) {
	return nil, nil
}

func (stubBillingService) CreateCheckoutSession(ctx context.Context, identity billing.Identity, input billing.CheckoutInput) (string, error) {
	return "", nil
}

func (stubBillingService) CreatePortalSession(ctx context.Context, identity billing.Identity) (string, error) {
	return "", nil
}

func (stubBillingService) GetBillingInfo(ctx context.Context, identity billing.Identity) (*stripe.BillingInfo, error) {
	return nil, nil
}

func (stubBillingService) UpdateBillingEmail(ctx context.Context, identity billing.Identity, email string) (string, error) {
	return email, nil
}

func (stubBillingService) AddUsage(ctx context.Context, identity billing.Identity, input billing.UsageInput) (*stripe.UsageItem, error) {
	return nil, nil
}

func (stubBillingService) ListPendingUsage(ctx context.Context, identity billing.Identity) ([]*stripe.UsageItem, error) {
	return nil, nil
}

func (stubBillingService) GateForTenant(ctx context.Context, identity billing.Identity) billing.Decision {
	return billing.DecisionAllow
}

func testRouterConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.FrontendURL = "http://localhost:3000"
	cfg.Session = config.SessionConfig{Secret: "secret", Issuer: "issuer"}
	return cfg
}

func newRouterForTest(t *testing.T) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(RouterParams{
		Config:  testRouterConfig(),
		Logger:  logg,
		DB:      stubPinger{},
		Redis:   stubPinger{},
		Billing: stubBillingService{},
	})
}

func TestRouterHealthLive(t *testing.T) {
	router := newRouterForTest(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterHealthReady(t *testing.T) {
	router := newRouterForTest(t)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterBillingRequiresAuth(t *testing.T) {
	router := newRouterForTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterBillingWithSessionToken(t *testing.T) {
	router := newRouterForTest(t)

	cfg := config.SessionConfig{Secret: "secret", Issuer: "issuer"}
	token, err := session.Issue(cfg, session.Claims{
		TenantID: "tenant-1",
		Email:    "owner@acme.test",
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/gate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}
}

func TestRouterWebhookMissingSignature(t *testing.T) {
	router := newRouterForTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
