package models

import "time"

// Function codes seeded for the built-in administrator role. Handlers gate
// administrative endpoints on these.
const (
	FunctionUsersManage       = "users.manage"
	FunctionGroupsManage      = "groups.manage"
	FunctionRolesManage       = "roles.manage"
	FunctionDirectoriesManage = "directories.manage"
)

// Function represents the finest-grained permission unit in the
// authorization model. Functions are aggregated into roles, which are in
// turn assigned to groups.
type Function struct {
	// Code is the stable, unique code identifying the function (e.g. "Security.UserAdministration").
	Code string `gorm:"primaryKey;size:100"`
	// Name is the display name of the function.
	Name string `gorm:"size:100;not null"`
	// Description provides a human-readable explanation of what this function grants.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the function was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the function was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Function model.
func (Function) TableName() string {
	return "functions"
}
