package billing

import (
	"context"
	"testing"

	"github.com/launchforge/launchforge-backend/pkg/db/models"
	pkgerrors "github.com/launchforge/launchforge-backend/pkg/errors"
	"github.com/launchforge/launchforge-backend/pkg/stripe"
)

func TestComputeAccessGateTruthTable(t *testing.T) {
	cases := []struct {
		name string
		sub  *stripe.Subscription
		want Decision
	}{
		{name: "absent blocks", sub: nil, want: DecisionBlock},
		{name: "trialing allows", sub: &stripe.Subscription{Status: stripe.StatusTrialing}, want: DecisionAllow},
		{name: "active allows", sub: &stripe.Subscription{Status: stripe.StatusActive}, want: DecisionAllow},
		{name: "canceled blocks", sub: &stripe.Subscription{Status: stripe.StatusCanceled}, want: DecisionBlock},
		{name: "unpaid blocks", sub: &stripe.Subscription{Status: stripe.StatusUnpaid}, want: DecisionBlock},
		{name: "incomplete_expired blocks", sub: &stripe.Subscription{Status: stripe.StatusIncompleteExpired}, want: DecisionBlock},
		{name: "past_due fails open", sub: &stripe.Subscription{Status: stripe.StatusPastDue}, want: DecisionAllow},
		{name: "incomplete fails open", sub: &stripe.Subscription{Status: stripe.StatusIncomplete}, want: DecisionAllow},
		{name: "paused fails open", sub: &stripe.Subscription{Status: stripe.StatusPaused}, want: DecisionAllow},
		{name: "unrecognized fails open", sub: &stripe.Subscription{Status: "mystery"}, want: DecisionAllow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeAccessGate(tc.sub); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestGateForTenantFailsOpenOnProviderError(t *testing.T) {
	dir := newStubDirectory()
	dir.byTenant["tenant-1"] = &models.Customer{ID: "cus_1", TenantID: "tenant-1", Email: "owner@example.com"}
	provider := &stubProvider{listErr: pkgerrors.New(pkgerrors.CodeDependency, "provider unavailable")}
	svc := newTestService(t, dir, provider, testBillingConfig())

	if got := svc.GateForTenant(context.Background(), testIdentity()); got != DecisionAllow {
		t.Fatalf("expected fail-open allow, got %s", got)
	}
}

func TestGateForTenantBlocksWhenNoSubscription(t *testing.T) {
	dir := newStubDirectory()
	dir.byTenant["tenant-1"] = &models.Customer{ID: "cus_1", TenantID: "tenant-1", Email: "owner@example.com"}
	svc := newTestService(t, dir, &stubProvider{}, testBillingConfig())

	if got := svc.GateForTenant(context.Background(), testIdentity()); got != DecisionBlock {
		t.Fatalf("expected block for absent subscription, got %s", got)
	}
	if !DecisionAllow.Allowed() || DecisionBlock.Allowed() {
		t.Fatalf("Allowed helper mismatch")
	}
}

func TestGateForTenantAllowsActive(t *testing.T) {
	dir := newStubDirectory()
	dir.byTenant["tenant-1"] = &models.Customer{ID: "cus_1", TenantID: "tenant-1", Email: "owner@example.com"}
	provider := &stubProvider{
		listResp: []*stripe.Subscription{{ID: "sub_1", Status: stripe.StatusActive, CustomerID: "cus_1"}},
	}
	svc := newTestService(t, dir, provider, testBillingConfig())

	if got := svc.GateForTenant(context.Background(), testIdentity()); got != DecisionAllow {
		t.Fatalf("expected allow, got %s", got)
	}
}
