package customers

import (
	"context"

	"gorm.io/gorm"

	"github.com/launchforge/launchforge-backend/pkg/db"
	"github.com/launchforge/launchforge-backend/pkg/db/models"
	"github.com/launchforge/launchforge-backend/pkg/errors"
)

const tenantUniqueConstraint = "uq_customers_tenant_id"

// Repository handles the tenant to billing-customer directory.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByTenant(ctx context.Context, tenantID string) (*models.Customer, error)
	FindByID(ctx context.Context, customerID string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	UpdateEmail(ctx context.Context, customerID, email string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a customer directory bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByTenant returns the tenant's customer record, or nil when none exists.
func (r *repository) FindByTenant(ctx context.Context, tenantID string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindByID(ctx context.Context, customerID string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).
		Where("id = ?", customerID).
		First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Create inserts the record, surfacing a CONFLICT when the tenant already
// has one. Racing creators resolve the conflict by re-reading.
func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		if db.IsUniqueViolation(err, tenantUniqueConstraint) {
			return errors.Wrap(errors.CodeConflict, err, "customer already exists for tenant")
		}
		return err
	}
	return nil
}

// UpdateEmail changes the cached billing email for a known customer id.
func (r *repository) UpdateEmail(ctx context.Context, customerID, email string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("email", email)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "customer not found")
	}
	return nil
}
