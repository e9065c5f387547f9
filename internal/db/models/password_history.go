package models

import "time"

// PasswordHistory records a previously used password hash for a user.
// Entries inside the configured history window are checked on password
// change to prevent reuse.
type PasswordHistory struct {
	// ID is the unique identifier (UUID) for the history entry.
	ID string `gorm:"primaryKey;size:36"`
	// UserID is the ID of the user the entry belongs to.
	UserID string `gorm:"size:36;not null;index"`
	// Changed is the instant the password was set.
	Changed time.Time `gorm:"not null"`
	// Password is the hash of the password that was set.
	Password string `gorm:"size:255;not null"`
}

// TableName specifies the database table name for the PasswordHistory model.
func (PasswordHistory) TableName() string {
	return "password_history"
}
