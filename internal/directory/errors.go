package directory

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when a user cannot be found in the backing store.
	ErrUserNotFound = errors.New("user not found")

	// ErrGroupNotFound is returned when a group cannot be found in the backing store.
	ErrGroupNotFound = errors.New("group not found")

	// ErrRoleNotFound is returned when a referenced role code does not exist.
	ErrRoleNotFound = errors.New("role not found")

	// ErrGroupMemberNotFound is returned when a member is not part of the given group.
	ErrGroupMemberNotFound = errors.New("group member not found")

	// ErrGroupRoleNotFound is returned when a role is not assigned to the given group.
	ErrGroupRoleNotFound = errors.New("group role not found")

	// ErrDirectoryNotFound is returned when no user directory exists with the given ID.
	ErrDirectoryNotFound = errors.New("user directory not found")

	// ErrDirectoryTypeNotFound is returned when a directory's type code has no registered provider.
	ErrDirectoryTypeNotFound = errors.New("user directory type not found")

	// ErrDuplicateUser is returned when creating a user whose username already exists in the directory.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrDuplicateGroup is returned when creating a group whose name already exists in the directory.
	ErrDuplicateGroup = errors.New("group already exists")

	// ErrAuthenticationFailed is returned on a credential mismatch. It deliberately
	// does not reveal whether the username or the password was wrong.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrUserLocked is returned when the account is locked after too many failed attempts.
	ErrUserLocked = errors.New("user locked")

	// ErrExpiredPassword is returned when the user's password has expired.
	ErrExpiredPassword = errors.New("password expired")

	// ErrExistingPassword is returned when a new password matches one in the
	// user's password history window.
	ErrExistingPassword = errors.New("password has been used before")

	// ErrExistingGroupMembers is returned when deleting a group that still has members.
	ErrExistingGroupMembers = errors.New("group has existing members")

	// ErrInvalidAttribute is returned when a search attribute or member type is not recognized.
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrInvalidConfiguration is returned when a directory's parameters are missing or malformed.
	ErrInvalidConfiguration = errors.New("invalid directory configuration")

	// errCapabilityNotSupported is the cause recorded when an operation is invoked
	// on a directory whose capabilities exclude it. Callers are expected to query
	// Capabilities() up front, so this surfaces only as an UnavailableError.
	errCapabilityNotSupported = errors.New("operation not supported by this directory")
)

// domainErrors are the recoverable conditions callers pattern-match on.
// They pass through operation boundaries unchanged; everything else is
// wrapped into an UnavailableError.
var domainErrors = []error{
	ErrUserNotFound,
	ErrGroupNotFound,
	ErrRoleNotFound,
	ErrGroupMemberNotFound,
	ErrGroupRoleNotFound,
	ErrDirectoryNotFound,
	ErrDirectoryTypeNotFound,
	ErrDuplicateUser,
	ErrDuplicateGroup,
	ErrAuthenticationFailed,
	ErrUserLocked,
	ErrExpiredPassword,
	ErrExistingPassword,
	ErrExistingGroupMembers,
	ErrInvalidAttribute,
	ErrInvalidConfiguration,
}

// UnavailableError is the catch-all failure for infrastructure errors
// (network, protocol, unexpected database errors). It wraps the underlying
// cause so it can be logged, while callers across the service boundary see
// a single undifferentiated failure.
type UnavailableError struct {
	// Op identifies the operation that failed.
	Op string
	// DirectoryID is the ID of the directory the operation was issued against.
	DirectoryID string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("directory %s: %s: unavailable", e.DirectoryID, e.Op)
	}

	return fmt.Sprintf("directory %s: %s: unavailable: %v", e.DirectoryID, e.Op, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/errors.As.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsDomainError reports whether err is one of the recoverable domain
// conditions of the error taxonomy, as opposed to an unavailable failure.
func IsDomainError(err error) bool {
	for _, domainErr := range domainErrors {
		if errors.Is(err, domainErr) {
			return true
		}
	}

	return false
}

// coerce passes domain errors through unchanged and wraps everything else
// into an UnavailableError carrying the operation and directory context.
func coerce(op, directoryID string, err error) error {
	if err == nil {
		return nil
	}

	if IsDomainError(err) {
		return err
	}

	return &UnavailableError{Op: op, DirectoryID: directoryID, Err: err}
}
