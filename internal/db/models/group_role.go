package models

import "time"

// GroupRole maps a group to a role for authorization purposes.
// The mapping is keyed by the group's local UUID and the role code, which
// makes it work identically for database-backed and LDAP-backed groups:
// LDAP has no native role concept, so this table is the side-channel that
// carries role assignments for it.
type GroupRole struct {
	// GroupID is the ID of the group being mapped.
	GroupID string `gorm:"primaryKey;size:36;column:group_id"`
	// RoleCode is the code of the role that group members receive.
	RoleCode string `gorm:"primaryKey;size:100;column:role_code"`
	// Group is the associated group (loaded via foreign key).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	// Role is the associated role (loaded via foreign key).
	Role Role `gorm:"foreignKey:RoleCode;references:Code;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the mapping was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the GroupRole model.
func (GroupRole) TableName() string {
	return "group_roles"
}
