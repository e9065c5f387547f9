package models

import "time"

// Group represents a group of users inside one user directory.
//
// Every group has a durable UUID regardless of the backing directory. For
// LDAP-backed directories the row exists purely so that roles can be mapped
// to the group: the UUID is synthesized on first role assignment and is
// decoupled from the group's distinguished name on the LDAP server.
type Group struct {
	// ID is the unique identifier (UUID) for the group.
	ID string `gorm:"primaryKey;size:36"`
	// DirectoryID is the ID of the user directory the group belongs to.
	DirectoryID string `gorm:"size:36;not null;uniqueIndex:idx_groups_directory_name"`
	// Name is the group name, unique within a directory (case-insensitively).
	Name string `gorm:"size:100;not null;uniqueIndex:idx_groups_directory_name"`
	// Description provides a human-readable explanation of the group's purpose.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the group was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the group was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Group model.
func (Group) TableName() string {
	return "groups"
}
