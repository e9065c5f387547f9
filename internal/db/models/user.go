package models

import (
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user account.
type UserStatus int

const (
	// UserStatusInactive indicates the user account has been disabled and cannot log in.
	UserStatusInactive UserStatus = 0
	// UserStatusActive indicates the user account is active.
	UserStatusActive UserStatus = 1
	// UserStatusLocked indicates the user account has been locked, e.g. after too many failed logins.
	UserStatusLocked UserStatus = 2
	// UserStatusExpired indicates the user's password has expired and must be changed.
	UserStatusExpired UserStatus = 3
)

// User represents a user account inside one user directory.
// Identity is directory-scoped: the same username may exist independently
// in two different directories, which is why uniqueness is enforced on the
// (directory, username) pair rather than the username alone.
type User struct {
	// ID is the unique identifier (UUID) for the user.
	ID string `gorm:"primaryKey;size:36"`
	// DirectoryID is the ID of the user directory the user belongs to.
	DirectoryID string `gorm:"size:36;not null;uniqueIndex:idx_users_directory_username"`
	// Username is the login name, unique within a directory (case-insensitively).
	Username string `gorm:"size:100;not null;uniqueIndex:idx_users_directory_username"`
	// Status is the current account status (active, inactive, locked, expired).
	Status UserStatus `gorm:"not null;default:1"`
	// Password is the hashed password. Empty for directories whose backing
	// store holds no password (e.g. LDAP).
	Password string `gorm:"size:255"`
	// PasswordAttempts counts consecutive failed authentication attempts.
	PasswordAttempts int `gorm:"not null;default:0"`
	// PasswordExpiry is the instant at which the current password expires.
	PasswordExpiry *time.Time
	// Name is the user's full name.
	Name string `gorm:"size:100"`
	// PreferredName is the name the user prefers to be addressed by.
	PreferredName string `gorm:"size:100"`
	// Email is the user's email address.
	Email string `gorm:"size:100"`
	// Phone is the user's phone number.
	Phone string `gorm:"size:30"`
	// Mobile is the user's mobile number.
	Mobile string `gorm:"size:30"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPasswordHash verifies a plaintext password against a stored hash.
// Argon2id is the native format; bcrypt hashes are also accepted so that
// accounts imported from other systems keep working until their next
// password change.
func VerifyPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}

	if strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}

	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}

// VerifyPassword verifies a plaintext password against the user's stored hash.
func (u *User) VerifyPassword(password string) bool {
	return VerifyPasswordHash(password, u.Password)
}
