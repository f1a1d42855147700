package models

import (
	"encoding/json"
	"time"
)

// Customer maps a tenant to its external billing customer. The primary key
// is the provider-assigned customer id; tenant_id is the lookup key.
type Customer struct {
	ID         string          `gorm:"column:id;primaryKey"`
	TenantID   string          `gorm:"column:tenant_id;not null;uniqueIndex:uq_customers_tenant_id"`
	Email      string          `gorm:"column:email;not null;index"`
	TenantName string          `gorm:"column:tenant_name;not null;default:''"`
	Metadata   json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
