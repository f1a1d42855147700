package billing

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/launchforge/launchforge-backend/internal/customers"
	"github.com/launchforge/launchforge-backend/pkg/db/models"
	pkgerrors "github.com/launchforge/launchforge-backend/pkg/errors"
	"github.com/launchforge/launchforge-backend/pkg/stripe"
)

type stubDirectory struct {
	byTenant  map[string]*models.Customer
	createErr error
	// conflictWinner lands in the directory alongside the conflict,
	// simulating the concurrent writer that won the race.
	conflictWinner *models.Customer
	findErr        error
	created        []*models.Customer
	findCalls      int
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{byTenant: map[string]*models.Customer{}}
}

func (d *stubDirectory) WithTx(tx *gorm.DB) customers.Repository {
	return d
}

func (d *stubDirectory) FindByTenant(ctx context.Context, tenantID string) (*models.Customer, error) {
	d.findCalls++
	if d.findErr != nil {
		return nil, d.findErr
	}
	return d.byTenant[tenantID], nil
}

func (d *stubDirectory) FindByID(ctx context.Context, customerID string) (*models.Customer, error) {
	for _, customer := range d.byTenant {
		if customer.ID == customerID {
			return customer, nil
		}
	}
	return nil, nil
}

func (d *stubDirectory) Create(ctx context.Context, customer *models.Customer) error {
	if d.createErr != nil {
		err := d.createErr
		d.createErr = nil
		if d.conflictWinner != nil {
			d.byTenant[customer.TenantID] = d.conflictWinner
		}
		return err
	}
	if _, exists := d.byTenant[customer.TenantID]; exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "customer already exists for tenant")
	}
	d.byTenant[customer.TenantID] = customer
	d.created = append(d.created, customer)
	return nil
}

func (d *stubDirectory) UpdateEmail(ctx context.Context, customerID, email string) error {
	for _, customer := range d.byTenant {
		if customer.ID == customerID {
			customer.Email = email
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
}

type stubProvider struct {
	createCustomerID    string
	createCustomerErrs  []error
	createCustomerCalls int
	lastCustomerParams  stripe.CustomerParams

	trialResp       *stripe.Subscription
	trialErr        error
	trialCalls      int
	lastTrialParams stripe.TrialParams

	listResp  []*stripe.Subscription
	listErr   error
	listCalls int

	getResp *stripe.Subscription
	getErr  error

	updateResp      *stripe.Subscription
	updateErr       error
	updateCalls     int
	lastUpdatePrice string
	lastUpdateItem  string

	canceled  []string
	cancelErr error

	checkoutURL        string
	lastCheckoutParams stripe.CheckoutParams
	portalURL          string
	lastPortalReturn   string

	billingInfo   *stripe.BillingInfo
	updatedEmails []string

	pendingUsage []*stripe.UsageItem
	usageErr     error

	products []*stripe.Product
}

func (p *stubProvider) CreateCustomer(ctx context.Context, params stripe.CustomerParams) (string, error) {
	p.createCustomerCalls++
	p.lastCustomerParams = params
	if len(p.createCustomerErrs) > 0 {
		err := p.createCustomerErrs[0]
		p.createCustomerErrs = p.createCustomerErrs[1:]
		if err != nil {
			return "", err
		}
	}
	if p.createCustomerID == "" {
		return "cus_stub", nil
	}
	return p.createCustomerID, nil
}

func (p *stubProvider) UpdateCustomerEmail(ctx context.Context, customerID, email string) error {
	p.updatedEmails = append(p.updatedEmails, email)
	return nil
}

func (p *stubProvider) GetBillingInfo(ctx context.Context, customerID string) (*stripe.BillingInfo, error) {
	if p.billingInfo == nil {
		return &stripe.BillingInfo{}, nil
	}
	return p.billingInfo, nil
}

func (p *stubProvider) CreateTrialSubscription(ctx context.Context, params stripe.TrialParams) (*stripe.Subscription, error) {
	p.trialCalls++
	p.lastTrialParams = params
	if p.trialErr != nil {
		return nil, p.trialErr
	}
	if p.trialResp != nil {
		return p.trialResp, nil
	}
	return &stripe.Subscription{
		ID:         "sub_trial",
		CustomerID: params.CustomerID,
		Status:     stripe.StatusTrialing,
		PriceID:    params.PriceID,
		TrialEnd:   params.TrialEnd.Unix(),
	}, nil
}

func (p *stubProvider) ListSubscriptions(ctx context.Context, customerID string, statuses ...stripe.SubscriptionStatus) ([]*stripe.Subscription, error) {
	p.listCalls++
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.listResp, nil
}

func (p *stubProvider) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	if p.getErr != nil {
		return nil, p.getErr
	}
	return p.getResp, nil
}

func (p *stubProvider) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (*stripe.Subscription, error) {
	p.updateCalls++
	p.lastUpdateItem = itemID
	p.lastUpdatePrice = priceID
	if p.updateErr != nil {
		return nil, p.updateErr
	}
	if p.updateResp != nil {
		return p.updateResp, nil
	}
	return &stripe.Subscription{ID: subscriptionID, Status: stripe.StatusActive, PriceID: priceID, ItemID: itemID}, nil
}

func (p *stubProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	p.canceled = append(p.canceled, subscriptionID)
	return p.cancelErr
}

func (p *stubProvider) CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (string, error) {
	p.lastCheckoutParams = params
	if p.checkoutURL == "" {
		return "https://checkout.example.com/s/1", nil
	}
	return p.checkoutURL, nil
}

func (p *stubProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	p.lastPortalReturn = returnURL
	if p.portalURL == "" {
		return "https://portal.example.com/p/1", nil
	}
	return p.portalURL, nil
}

func (p *stubProvider) CreateInvoiceItem(ctx context.Context, params stripe.UsageParams) (*stripe.UsageItem, error) {
	if p.usageErr != nil {
		return nil, p.usageErr
	}
	item := &stripe.UsageItem{
		ID:          fmt.Sprintf("ii_%d", len(p.pendingUsage)+1),
		Amount:      params.Amount,
		Currency:    params.Currency,
		Description: params.Description,
		Date:        1764633600,
	}
	p.pendingUsage = append(p.pendingUsage, item)
	return item, nil
}

func (p *stubProvider) ListPendingInvoiceItems(ctx context.Context, customerID string) ([]*stripe.UsageItem, error) {
	if p.usageErr != nil {
		return nil, p.usageErr
	}
	return p.pendingUsage, nil
}

func (p *stubProvider) ListActiveProducts(ctx context.Context) ([]*stripe.Product, error) {
	return p.products, nil
}
