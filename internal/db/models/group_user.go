package models

import "time"

// GroupUser represents the many-to-many relationship between groups and users.
// Memberships stored here are only authoritative for database-backed
// directories; LDAP-backed directories keep membership on the LDAP server.
type GroupUser struct {
	// GroupID is the ID of the group in this membership.
	GroupID string `gorm:"primaryKey;size:36;column:group_id"`
	// UserID is the ID of the user in this membership.
	UserID string `gorm:"primaryKey;size:36;column:user_id"`
	// Group is the associated group (loaded via foreign key).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the user was added to the group (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the GroupUser model.
func (GroupUser) TableName() string {
	return "group_users"
}
