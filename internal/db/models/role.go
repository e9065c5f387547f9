package models

import "time"

// Role represents a named bundle of functions that can be assigned to groups.
// Roles are global and directory-independent: the stable role code is used
// as a foreign key in the group mapping table even when the owning group
// lives in an external (LDAP) directory.
type Role struct {
	// Code is the stable, unique code identifying the role (e.g. "Administrator").
	Code string `gorm:"primaryKey;size:100"`
	// Name is the display name of the role.
	Name string `gorm:"size:100;not null"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
