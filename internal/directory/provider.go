package directory

import "github.com/guardpost/guardpost/internal/db/models"

// Provider is the contract every user directory backend implements.
//
// A provider instance is bound to exactly one directory for its lifetime
// and every operation is scoped to that directory. All operations are
// synchronous and perform blocking I/O against the backing store. Domain
// failures (not-found, duplicate, locked, expired, existing-password) are
// returned as the sentinel errors of this package; infrastructure failures
// are returned as *UnavailableError.
type Provider interface {
	// Capabilities returns the capability descriptor for this directory.
	// Callers must check the relevant capability before invoking an
	// operation the backend may not support.
	Capabilities() Capabilities

	// Authenticate verifies the user's credentials.
	Authenticate(username, password string) error

	// ChangePassword changes a user's password after verifying the old one.
	ChangePassword(username, oldPassword, newPassword string) error

	// AdminChangePassword changes a user's password without verifying the
	// old one. It can force-expire the new password, lock the user, and
	// purge the password history before recording the new hash.
	AdminChangePassword(username, newPassword string, expirePassword, lockUser, resetPasswordHistory bool) error

	// ResetPassword sets a new password without the old one, subject to the
	// password history check.
	ResetPassword(username, newPassword string) error

	// CreateUser creates a new user. An empty password is replaced with a
	// securely generated random one.
	CreateUser(user *models.User, expiredPassword, userLocked bool) error

	// UpdateUser updates a user's profile attributes and status flags.
	UpdateUser(user *models.User, expirePassword, lockUser bool) error

	// DeleteUser deletes the user with the given username.
	DeleteUser(username string) error

	// GetUser retrieves the user with the given username.
	GetUser(username string) (*models.User, error)

	// GetUsers retrieves a filtered, sorted page of users.
	GetUsers(filter string, sortBy UserSortBy, sortDirection SortDirection, page, pageSize int) (*Users, error)

	// FindUsers retrieves the users matching all the given attribute predicates.
	FindUsers(attributes []Attribute) ([]models.User, error)

	// IsExistingUser reports whether a user with the given username exists.
	IsExistingUser(username string) (bool, error)

	// CreateGroup creates a new group.
	CreateGroup(group *models.Group) error

	// UpdateGroup updates a group's description.
	UpdateGroup(group *models.Group) error

	// DeleteGroup deletes the group with the given name. A group that still
	// has members cannot be deleted.
	DeleteGroup(groupName string) error

	// GetGroup retrieves the group with the given name.
	GetGroup(groupName string) (*models.Group, error)

	// GetGroupNames retrieves the names of all groups.
	GetGroupNames() ([]string, error)

	// GetGroups retrieves a filtered, sorted page of groups.
	GetGroups(filter string, sortDirection SortDirection, page, pageSize int) (*Groups, error)

	// GetGroupsForUser retrieves all groups the user is a member of.
	GetGroupsForUser(username string) ([]models.Group, error)

	// GetGroupNamesForUser retrieves the names of all groups the user is a member of.
	GetGroupNamesForUser(username string) ([]string, error)

	// AddUserToGroup adds a user to a group. Adding an existing member is a no-op.
	AddUserToGroup(groupName, username string) error

	// RemoveUserFromGroup removes a user from a group.
	RemoveUserFromGroup(groupName, username string) error

	// AddMemberToGroup adds a member of the given type to a group.
	AddMemberToGroup(groupName string, memberType GroupMemberType, memberName string) error

	// RemoveMemberFromGroup removes a member of the given type from a group.
	RemoveMemberFromGroup(groupName string, memberType GroupMemberType, memberName string) error

	// GetMembersForGroup retrieves a filtered, sorted page of group members.
	GetMembersForGroup(groupName, filter string, sortDirection SortDirection, page, pageSize int) (*GroupMembers, error)

	// IsUserInGroup reports whether the user is a member of the group.
	IsUserInGroup(groupName, username string) (bool, error)

	// AddRoleToGroup assigns a role to a group. Assigning an existing role is a no-op.
	AddRoleToGroup(groupName, roleCode string) error

	// RemoveRoleFromGroup removes a role assignment from a group.
	RemoveRoleFromGroup(groupName, roleCode string) error

	// GetRoleCodesForGroup retrieves the codes of all roles assigned to a group.
	GetRoleCodesForGroup(groupName string) ([]string, error)

	// GetRoleCodesForUser retrieves the codes of all roles the user receives
	// through group membership.
	GetRoleCodesForUser(username string) ([]string, error)

	// GetRolesForGroup retrieves the role assignments for a group.
	GetRolesForGroup(groupName string) ([]GroupRole, error)

	// GetFunctionCodesForUser retrieves the codes of all functions the user
	// receives through roles assigned to their groups.
	GetFunctionCodesForUser(username string) ([]string, error)
}
