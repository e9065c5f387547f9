package models

import "time"

// TenantStatus represents the status of a tenant.
type TenantStatus int

const (
	// TenantStatusInactive indicates the tenant has been disabled.
	TenantStatusInactive TenantStatus = 0
	// TenantStatusActive indicates the tenant is active.
	TenantStatusActive TenantStatus = 1
)

// Tenant represents one organization served by this deployment.
// Each tenant owns one or more user directories.
type Tenant struct {
	// ID is the unique identifier (UUID) for the tenant.
	ID string `gorm:"primaryKey;size:36"`
	// Name is the display name of the tenant.
	Name string `gorm:"size:100;not null;unique"`
	// Status is the current tenant status.
	Status TenantStatus `gorm:"not null;default:1"`
	// CreatedAt is the timestamp when the tenant was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the tenant was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Tenant model.
func (Tenant) TableName() string {
	return "tenants"
}
