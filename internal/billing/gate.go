package billing

import (
	"context"

	"github.com/launchforge/launchforge-backend/pkg/stripe"
)

// Decision is the access gate outcome for a tenant.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionBlock Decision = "block"
)

// Allowed reports whether the tenant's users may use the product.
func (d Decision) Allowed() bool {
	return d == DecisionAllow
}

// ComputeAccessGate derives the gate decision from the authoritative
// subscription. Absent and dead statuses block; trialing and active allow.
// Ambiguous statuses (incomplete, past_due, paused, unrecognized) allow:
// billing limbo must never lock out a paying customer.
func ComputeAccessGate(sub *stripe.Subscription) Decision {
	if sub == nil {
		return DecisionBlock
	}
	switch sub.Status {
	case stripe.StatusTrialing, stripe.StatusActive:
		return DecisionAllow
	case stripe.StatusCanceled, stripe.StatusUnpaid, stripe.StatusIncompleteExpired:
		return DecisionBlock
	default:
		return DecisionAllow
	}
}

// GateForTenant computes the gate for a tenant's current subscription.
// Provider fetch errors allow access: a billing outage is never a reason to
// deny the product.
func (s *service) GateForTenant(ctx context.Context, identity Identity) Decision {
	sub, err := s.GetActiveSubscription(ctx, identity)
	if err != nil {
		s.logg.Error(ctx, "access gate falling open on subscription fetch failure", err)
		return DecisionAllow
	}
	return ComputeAccessGate(sub)
}
