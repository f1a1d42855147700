package stripe

import (
	"github.com/stripe/stripe-go/v82"
)

// SubscriptionStatus mirrors the provider's subscription status enumeration.
type SubscriptionStatus string

const (
	StatusActive            SubscriptionStatus = "active"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusPaused            SubscriptionStatus = "paused"
	StatusUnpaid            SubscriptionStatus = "unpaid"
)

// PriceInterval is the recurring billing interval of a price.
type PriceInterval string

const (
	IntervalDay   PriceInterval = "day"
	IntervalWeek  PriceInterval = "week"
	IntervalMonth PriceInterval = "month"
	IntervalYear  PriceInterval = "year"
)

// Subscription is the typed view of a provider subscription. Raw SDK shapes
// never leave this package.
type Subscription struct {
	ID                 string             `json:"id"`
	CustomerID         string             `json:"customer_id"`
	Status             SubscriptionStatus `json:"status"`
	ItemID             string             `json:"-"`
	CurrentPeriodStart int64              `json:"current_period_start"`
	CurrentPeriodEnd   int64              `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	CancelAt           int64              `json:"cancel_at,omitempty"`
	TrialEnd           int64              `json:"trial_end,omitempty"`
	ProductID          string             `json:"product_id"`
	ProductName        string             `json:"product_name"`
	ProductDescription string             `json:"product_description,omitempty"`
	PriceID            string             `json:"price_id"`
	PriceAmount        int64              `json:"price_amount"`
	PriceCurrency      string             `json:"price_currency"`
	PriceInterval      PriceInterval      `json:"price_interval,omitempty"`
}

// IsTrial reports whether the subscription is in its trial period.
func (s *Subscription) IsTrial() bool {
	return s != nil && s.Status == StatusTrialing
}

// Product is a plan available for selection, derived from an active
// recurring price and its product.
type Product struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	PriceID       string        `json:"price_id"`
	PriceAmount   int64         `json:"price_amount"`
	PriceCurrency string        `json:"price_currency"`
	PriceInterval PriceInterval `json:"price_interval,omitempty"`
}

// UsageItem is a pending one-time charge attached to a customer, consumed
// by the provider's next invoicing cycle.
type UsageItem struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Date        int64  `json:"date"`
}

// BillingInfo summarizes the billable state of a customer.
type BillingInfo struct {
	BillingEmail     string `json:"billing_email"`
	HasPaymentMethod bool   `json:"has_payment_method"`
}

func subscriptionFromAPI(sub *stripe.Subscription) *Subscription {
	if sub == nil {
		return nil
	}
	out := &Subscription{
		ID:                sub.ID,
		Status:            SubscriptionStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CancelAt:          sub.CancelAt,
		TrialEnd:          sub.TrialEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return out
	}
	item := sub.Items.Data[0]
	out.ItemID = item.ID
	out.CurrentPeriodStart = item.CurrentPeriodStart
	out.CurrentPeriodEnd = item.CurrentPeriodEnd
	if item.Price == nil {
		return out
	}
	out.PriceID = item.Price.ID
	out.PriceAmount = item.Price.UnitAmount
	out.PriceCurrency = string(item.Price.Currency)
	if item.Price.Recurring != nil {
		out.PriceInterval = PriceInterval(item.Price.Recurring.Interval)
	}
	if item.Price.Product != nil {
		out.ProductID = item.Price.Product.ID
		out.ProductName = item.Price.Product.Name
		out.ProductDescription = item.Price.Product.Description
	}
	return out
}

func productFromPrice(price *stripe.Price) *Product {
	if price == nil || price.Product == nil {
		return nil
	}
	out := &Product{
		ID:            price.Product.ID,
		Name:          price.Product.Name,
		Description:   price.Product.Description,
		PriceID:       price.ID,
		PriceAmount:   price.UnitAmount,
		PriceCurrency: string(price.Currency),
	}
	if price.Recurring != nil {
		out.PriceInterval = PriceInterval(price.Recurring.Interval)
	}
	return out
}

func usageItemFromAPI(item *stripe.InvoiceItem) *UsageItem {
	if item == nil {
		return nil
	}
	return &UsageItem{
		ID:          item.ID,
		Amount:      item.Amount,
		Currency:    string(item.Currency),
		Description: item.Description,
		Date:        item.Date,
	}
}
