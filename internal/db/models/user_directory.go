// Package models contains database model definitions.
package models

import "time"

// UserDirectory identifies one configured identity backend instance.
// The type code selects the provider implementation and the parameter blob
// holds the ordered, typed name-value configuration the provider is
// constructed with. Parameters are immutable for the lifetime of a
// provider instance: they are read once at construction time.
type UserDirectory struct {
	// ID is the unique identifier (UUID) for the user directory.
	ID string `gorm:"primaryKey;size:36"`
	// TenantID is the ID of the tenant the directory belongs to.
	TenantID string `gorm:"size:36;not null;index"`
	// Type is the directory type code selecting the provider implementation
	// (e.g. "internal", "ldap").
	Type string `gorm:"size:50;not null"`
	// Name is the display name of the user directory.
	Name string `gorm:"size:100;not null"`
	// Parameters is the JSON-serialized ordered parameter list.
	Parameters []byte `gorm:"type:blob"`
	// CreatedAt is the timestamp when the directory was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the directory was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the UserDirectory model.
func (UserDirectory) TableName() string {
	return "user_directories"
}
