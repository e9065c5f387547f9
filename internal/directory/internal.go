package directory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/uniuri"
)

const (
	// DefaultMaxPasswordAttempts is the number of consecutive failed logins
	// after which an account is locked. -1 disables lockout.
	DefaultMaxPasswordAttempts = 5
	// DefaultPasswordExpiryMonths is how long a new password stays valid.
	DefaultPasswordExpiryMonths = 3
	// DefaultPasswordHistoryMonths is the rolling window within which a
	// password cannot be reused.
	DefaultPasswordHistoryMonths = 12

	// generatedPasswordLength is the length of passwords generated for users
	// created without one.
	generatedPasswordLength = 20

	whereDirectoryAndUsername  = "directory_id = ? AND lower(username) = lower(?)"
	whereDirectoryAndGroupName = "directory_id = ? AND lower(name) = lower(?)"
)

// InternalDirectory is the database-backed directory provider. It is the
// reference implementation: every capability is supported, and it owns
// password hashing, lockout counters, and password history/expiry.
type InternalDirectory struct {
	directoryID string
	db          *gorm.DB

	maxPasswordAttempts   int
	passwordExpiryMonths  int
	passwordHistoryMonths int
}

// NewInternalDirectory creates an internal directory provider from its
// configuration parameters.
func NewInternalDirectory(directoryID string, params Parameters, db *gorm.DB) (Provider, error) {
	maxAttempts, err := params.Int("MaxPasswordAttempts", DefaultMaxPasswordAttempts)
	if err != nil {
		return nil, err
	}

	expiryMonths, err := params.Int("PasswordExpiryMonths", DefaultPasswordExpiryMonths)
	if err != nil {
		return nil, err
	}

	historyMonths, err := params.Int("PasswordHistoryMonths", DefaultPasswordHistoryMonths)
	if err != nil {
		return nil, err
	}

	return &InternalDirectory{
		directoryID:           directoryID,
		db:                    db,
		maxPasswordAttempts:   maxAttempts,
		passwordExpiryMonths:  expiryMonths,
		passwordHistoryMonths: historyMonths,
	}, nil
}

// Capabilities returns the capability descriptor. The internal directory
// supports every operation.
func (d *InternalDirectory) Capabilities() Capabilities {
	return Capabilities{
		AdminChangePassword:       true,
		ChangePassword:            true,
		GroupAdministration:       true,
		GroupMemberAdministration: true,
		PasswordExpiry:            true,
		PasswordHistory:           true,
		UserAdministration:        true,
		UserLocks:                 true,
	}
}

// findUser looks up a user case-insensitively by username.
func (d *InternalDirectory) findUser(tx *gorm.DB, username string) (*models.User, error) {
	var user models.User

	err := tx.Where(whereDirectoryAndUsername, d.directoryID, username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user %s: %w", username, err)
	}

	return &user, nil
}

// findGroup looks up a group case-insensitively by name.
func (d *InternalDirectory) findGroup(tx *gorm.DB, groupName string) (*models.Group, error) {
	var group models.Group

	err := tx.Where(whereDirectoryAndGroupName, d.directoryID, groupName).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query group %s: %w", groupName, err)
	}

	return &group, nil
}

// isLocked reports whether the attempt counter has reached the lockout
// threshold. A threshold of -1 disables lockout entirely.
func (d *InternalDirectory) isLocked(user *models.User) bool {
	return d.maxPasswordAttempts != -1 && user.PasswordAttempts >= d.maxPasswordAttempts
}

// passwordExpiry computes the expiry timestamp for a password set now.
func (d *InternalDirectory) passwordExpiry(now time.Time) time.Time {
	return now.AddDate(0, d.passwordExpiryMonths, 0)
}

// isPasswordInHistory reports whether the plaintext password matches any
// hash recorded for the user inside the rolling history window.
func (d *InternalDirectory) isPasswordInHistory(tx *gorm.DB, userID, password string) (bool, error) {
	cutoff := time.Now().AddDate(0, -d.passwordHistoryMonths, 0)

	var entries []models.PasswordHistory
	if err := tx.Where("user_id = ? AND changed > ?", userID, cutoff).Find(&entries).Error; err != nil {
		return false, fmt.Errorf("failed to query password history: %w", err)
	}

	for _, entry := range entries {
		if models.VerifyPasswordHash(password, entry.Password) {
			return true, nil
		}
	}

	return false, nil
}

// appendPasswordHistory records a newly set password hash.
func appendPasswordHistory(tx *gorm.DB, userID, hash string, now time.Time) error {
	entry := models.PasswordHistory{
		ID:       uuid.NewString(),
		UserID:   userID,
		Changed:  now,
		Password: hash,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append password history: %w", err)
	}

	return nil
}

// Authenticate verifies the user's credentials against the local store.
func (d *InternalDirectory) Authenticate(username, password string) error {
	const op = "authenticate"

	user, err := d.findUser(d.db, username)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	if d.isLocked(user) {
		return ErrUserLocked
	}

	if !user.VerifyPassword(password) {
		if d.maxPasswordAttempts != -1 {
			err = d.db.Model(&models.User{}).
				Where("id = ?", user.ID).
				Update("password_attempts", gorm.Expr("password_attempts + 1")).Error
			if err != nil {
				return coerce(op, d.directoryID, fmt.Errorf("failed to increment password attempts: %w", err))
			}
		}

		return ErrAuthenticationFailed
	}

	if user.PasswordExpiry != nil && !user.PasswordExpiry.After(time.Now()) {
		return ErrExpiredPassword
	}

	return nil
}

// ChangePassword changes a user's password after verifying the old one and
// checking the new one against the password history window.
func (d *InternalDirectory) ChangePassword(username, oldPassword, newPassword string) error {
	const op = "change password"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		user, err := d.findUser(tx, username)
		if err != nil {
			return err
		}

		if d.isLocked(user) {
			return ErrUserLocked
		}

		if !user.VerifyPassword(oldPassword) {
			return ErrAuthenticationFailed
		}

		reused, err := d.isPasswordInHistory(tx, user.ID, newPassword)
		if err != nil {
			return err
		}

		if reused {
			return ErrExistingPassword
		}

		now := time.Now()
		hash := models.HashPassword(newPassword)
		expiry := d.passwordExpiry(now)

		updates := map[string]interface{}{
			"password":          hash,
			"password_attempts": 0,
			"password_expiry":   expiry,
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		return appendPasswordHistory(tx, user.ID, hash, now)
	})

	return coerce(op, d.directoryID, err)
}

// AdminChangePassword changes a user's password without verifying the old
// one. It can additionally expire the new password, lock the user, and
// purge the password history first.
func (d *InternalDirectory) AdminChangePassword(
	username, newPassword string,
	expirePassword, lockUser, resetPasswordHistory bool,
) error {
	const op = "admin change password"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		user, err := d.findUser(tx, username)
		if err != nil {
			return err
		}

		if resetPasswordHistory {
			if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordHistory{}).Error; err != nil {
				return fmt.Errorf("failed to reset password history: %w", err)
			}
		}

		now := time.Now()
		hash := models.HashPassword(newPassword)

		attempts := 0
		if lockUser && d.maxPasswordAttempts != -1 {
			attempts = d.maxPasswordAttempts
		}

		expiry := d.passwordExpiry(now)
		if expirePassword {
			expiry = now
		}

		updates := map[string]interface{}{
			"password":          hash,
			"password_attempts": attempts,
			"password_expiry":   expiry,
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		return appendPasswordHistory(tx, user.ID, hash, now)
	})

	return coerce(op, d.directoryID, err)
}

// ResetPassword sets a new password without the old one. The password
// history check still applies.
func (d *InternalDirectory) ResetPassword(username, newPassword string) error {
	const op = "reset password"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		user, err := d.findUser(tx, username)
		if err != nil {
			return err
		}

		reused, err := d.isPasswordInHistory(tx, user.ID, newPassword)
		if err != nil {
			return err
		}

		if reused {
			return ErrExistingPassword
		}

		now := time.Now()
		hash := models.HashPassword(newPassword)

		updates := map[string]interface{}{
			"password":          hash,
			"password_attempts": 0,
			"password_expiry":   d.passwordExpiry(now),
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		return appendPasswordHistory(tx, user.ID, hash, now)
	})

	return coerce(op, d.directoryID, err)
}

// CreateUser creates a new user. An empty password is replaced with a
// securely generated random one, and the initial hash seeds the password
// history.
func (d *InternalDirectory) CreateUser(user *models.User, expiredPassword, userLocked bool) error {
	const op = "create user"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		_, err := d.findUser(tx, user.Username)
		if err == nil {
			return ErrDuplicateUser
		}

		if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		password := user.Password
		if password == "" {
			password = uniuri.NewLen(generatedPasswordLength)
		}

		now := time.Now()
		hash := models.HashPassword(password)

		user.ID = uuid.NewString()
		user.DirectoryID = d.directoryID
		user.Password = hash
		user.Status = models.UserStatusActive

		user.PasswordAttempts = 0
		if userLocked && d.maxPasswordAttempts != -1 {
			user.PasswordAttempts = d.maxPasswordAttempts
			user.Status = models.UserStatusLocked
		}

		expiry := d.passwordExpiry(now)
		if expiredPassword {
			expiry = now

			if user.Status == models.UserStatusActive {
				user.Status = models.UserStatusExpired
			}
		}

		user.PasswordExpiry = &expiry

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		return appendPasswordHistory(tx, user.ID, hash, now)
	})

	return coerce(op, d.directoryID, err)
}

// UpdateUser updates a user's profile attributes and status flags.
func (d *InternalDirectory) UpdateUser(user *models.User, expirePassword, lockUser bool) error {
	const op = "update user"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		existing, err := d.findUser(tx, user.Username)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":           user.Name,
			"preferred_name": user.PreferredName,
			"email":          user.Email,
			"phone":          user.Phone,
			"mobile":         user.Mobile,
			"status":         user.Status,
		}

		if expirePassword {
			updates["password_expiry"] = time.Now()
		}

		if lockUser && d.maxPasswordAttempts != -1 {
			updates["password_attempts"] = d.maxPasswordAttempts
			updates["status"] = models.UserStatusLocked
		}

		if err := tx.Model(&models.User{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// DeleteUser deletes a user together with their memberships and password history.
func (d *InternalDirectory) DeleteUser(username string) error {
	const op = "delete user"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		user, err := d.findUser(tx, username)
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.GroupUser{}).Error; err != nil {
			return fmt.Errorf("failed to delete group memberships: %w", err)
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete password history: %w", err)
		}

		if err := tx.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// GetUser retrieves a user case-insensitively by username.
func (d *InternalDirectory) GetUser(username string) (*models.User, error) {
	user, err := d.findUser(d.db, username)
	if err != nil {
		return nil, coerce("get user", d.directoryID, err)
	}

	return user, nil
}

// IsExistingUser reports whether a user with the given username exists.
func (d *InternalDirectory) IsExistingUser(username string) (bool, error) {
	var count int64

	err := d.db.Model(&models.User{}).
		Where(whereDirectoryAndUsername, d.directoryID, username).
		Count(&count).Error
	if err != nil {
		return false, coerce("is existing user", d.directoryID, err)
	}

	return count > 0, nil
}

// userSortColumn maps a sort selector to its database column.
func userSortColumn(sortBy UserSortBy) string {
	switch sortBy {
	case UserSortByName:
		return "name"
	case UserSortByPreferredName:
		return "preferred_name"
	case UserSortByEmail:
		return "email"
	case UserSortByUsername:
		return "username"
	default:
		return "username"
	}
}

// GetUsers retrieves a filtered, sorted page of users.
func (d *InternalDirectory) GetUsers(
	filter string,
	sortBy UserSortBy,
	sortDirection SortDirection,
	page, pageSize int,
) (*Users, error) {
	const op = "get users"

	page, pageSize = normalizePage(page, pageSize)

	query := d.db.Model(&models.User{}).Where("directory_id = ?", d.directoryID)

	if filter != "" {
		pattern := "%" + strings.ToLower(filter) + "%"
		query = query.Where("lower(username) LIKE ? OR lower(name) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	order := userSortColumn(sortBy)
	if sortDirection == SortDescending {
		order += " DESC"
	}

	var users []models.User

	err := query.Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	return &Users{
		Users:         users,
		Total:         total,
		Filter:        filter,
		SortBy:        sortBy,
		SortDirection: sortDirection,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// userAttributeColumn maps a search attribute name to its database column.
func userAttributeColumn(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "username":
		return "username", true
	case "name":
		return "name", true
	case "preferredname":
		return "preferred_name", true
	case "email":
		return "email", true
	case "phone":
		return "phone", true
	case "mobile":
		return "mobile", true
	default:
		return "", false
	}
}

// FindUsers retrieves the users matching all the given attribute predicates
// (case-insensitive substring match per attribute).
func (d *InternalDirectory) FindUsers(attributes []Attribute) ([]models.User, error) {
	const op = "find users"

	query := d.db.Model(&models.User{}).Where("directory_id = ?", d.directoryID)

	for _, attr := range attributes {
		column, ok := userAttributeColumn(attr.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAttribute, attr.Name)
		}

		query = query.Where("lower("+column+") LIKE ?", "%"+strings.ToLower(attr.Value)+"%")
	}

	var users []models.User
	if err := query.Order("username").Find(&users).Error; err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	return users, nil
}

// CreateGroup creates a new group with a fresh UUID.
func (d *InternalDirectory) CreateGroup(group *models.Group) error {
	const op = "create group"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		_, err := d.findGroup(tx, group.Name)
		if err == nil {
			return ErrDuplicateGroup
		}

		if !errors.Is(err, ErrGroupNotFound) {
			return err
		}

		group.ID = uuid.NewString()
		group.DirectoryID = d.directoryID

		if err := tx.Create(group).Error; err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// UpdateGroup updates a group's description.
func (d *InternalDirectory) UpdateGroup(group *models.Group) error {
	const op = "update group"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		existing, err := d.findGroup(tx, group.Name)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Group{}).
			Where("id = ?", existing.ID).
			Update("description", group.Description).Error
		if err != nil {
			return fmt.Errorf("failed to update group: %w", err)
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// DeleteGroup deletes a group. A group that still has member users cannot
// be deleted.
func (d *InternalDirectory) DeleteGroup(groupName string) error {
	const op = "delete group"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		group, err := d.findGroup(tx, groupName)
		if err != nil {
			return err
		}

		var members int64
		if err := tx.Model(&models.GroupUser{}).Where("group_id = ?", group.ID).Count(&members).Error; err != nil {
			return fmt.Errorf("failed to count group members: %w", err)
		}

		if members > 0 {
			return ErrExistingGroupMembers
		}

		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete group roles: %w", err)
		}

		if err := tx.Delete(&models.Group{}, "id = ?", group.ID).Error; err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// GetGroup retrieves a group case-insensitively by name.
func (d *InternalDirectory) GetGroup(groupName string) (*models.Group, error) {
	group, err := d.findGroup(d.db, groupName)
	if err != nil {
		return nil, coerce("get group", d.directoryID, err)
	}

	return group, nil
}

// GetGroupNames retrieves the names of all groups in the directory.
func (d *InternalDirectory) GetGroupNames() ([]string, error) {
	var names []string

	err := d.db.Model(&models.Group{}).
		Where("directory_id = ?", d.directoryID).
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, coerce("get group names", d.directoryID, err)
	}

	return names, nil
}

// GetGroups retrieves a filtered, sorted page of groups.
func (d *InternalDirectory) GetGroups(
	filter string,
	sortDirection SortDirection,
	page, pageSize int,
) (*Groups, error) {
	const op = "get groups"

	page, pageSize = normalizePage(page, pageSize)

	query := d.db.Model(&models.Group{}).Where("directory_id = ?", d.directoryID)

	if filter != "" {
		query = query.Where("lower(name) LIKE ?", "%"+strings.ToLower(filter)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	order := "name"
	if sortDirection == SortDescending {
		order = "name DESC"
	}

	var groups []models.Group

	err := query.Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&groups).Error
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	return &Groups{
		Groups:        groups,
		Total:         total,
		Filter:        filter,
		SortDirection: sortDirection,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// GetGroupsForUser retrieves all groups the user is a member of.
func (d *InternalDirectory) GetGroupsForUser(username string) ([]models.Group, error) {
	const op = "get groups for user"

	user, err := d.findUser(d.db, username)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	var groups []models.Group

	err = d.db.Table("groups").
		Joins("JOIN group_users ON group_users.group_id = groups.id").
		Where("group_users.user_id = ?", user.ID).
		Order("groups.name").
		Find(&groups).Error
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	return groups, nil
}

// GetGroupNamesForUser retrieves the names of all groups the user is a member of.
func (d *InternalDirectory) GetGroupNamesForUser(username string) ([]string, error) {
	groups, err := d.GetGroupsForUser(username)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(groups))
	for i, group := range groups {
		names[i] = group.Name
	}

	return names, nil
}

// AddUserToGroup adds a user to a group. Adding an existing member leaves
// exactly one membership record.
func (d *InternalDirectory) AddUserToGroup(groupName, username string) error {
	const op = "add user to group"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		group, err := d.findGroup(tx, groupName)
		if err != nil {
			return err
		}

		user, err := d.findUser(tx, username)
		if err != nil {
			return err
		}

		var count int64

		err = tx.Model(&models.GroupUser{}).
			Where("group_id = ? AND user_id = ?", group.ID, user.ID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check group membership: %w", err)
		}

		if count > 0 {
			return nil
		}

		if err := tx.Create(&models.GroupUser{GroupID: group.ID, UserID: user.ID}).Error; err != nil {
			return fmt.Errorf("failed to add group membership: %w", err)
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// RemoveUserFromGroup removes a user from a group.
func (d *InternalDirectory) RemoveUserFromGroup(groupName, username string) error {
	const op = "remove user from group"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		group, err := d.findGroup(tx, groupName)
		if err != nil {
			return err
		}

		user, err := d.findUser(tx, username)
		if err != nil {
			return err
		}

		result := tx.Where("group_id = ? AND user_id = ?", group.ID, user.ID).Delete(&models.GroupUser{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove group membership: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return ErrGroupMemberNotFound
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// AddMemberToGroup adds a member of the given type to a group. The internal
// directory only holds user members.
func (d *InternalDirectory) AddMemberToGroup(groupName string, memberType GroupMemberType, memberName string) error {
	if memberType != GroupMemberTypeUser {
		return fmt.Errorf("%w: member type %s", ErrInvalidAttribute, memberType)
	}

	return d.AddUserToGroup(groupName, memberName)
}

// RemoveMemberFromGroup removes a member of the given type from a group.
func (d *InternalDirectory) RemoveMemberFromGroup(groupName string, memberType GroupMemberType, memberName string) error {
	if memberType != GroupMemberTypeUser {
		return fmt.Errorf("%w: member type %s", ErrInvalidAttribute, memberType)
	}

	return d.RemoveUserFromGroup(groupName, memberName)
}

// GetMembersForGroup retrieves a filtered, sorted page of group members.
func (d *InternalDirectory) GetMembersForGroup(
	groupName, filter string,
	sortDirection SortDirection,
	page, pageSize int,
) (*GroupMembers, error) {
	const op = "get members for group"

	page, pageSize = normalizePage(page, pageSize)

	group, err := d.findGroup(d.db, groupName)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	query := d.db.Table("users").
		Joins("JOIN group_users ON group_users.user_id = users.id").
		Where("group_users.group_id = ?", group.ID)

	if filter != "" {
		query = query.Where("lower(users.username) LIKE ?", "%"+strings.ToLower(filter)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	order := "users.username"
	if sortDirection == SortDescending {
		order = "users.username DESC"
	}

	var usernames []string

	err = query.Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Pluck("users.username", &usernames).Error
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	members := make([]GroupMember, len(usernames))
	for i, username := range usernames {
		members[i] = GroupMember{
			DirectoryID: d.directoryID,
			GroupName:   group.Name,
			MemberType:  GroupMemberTypeUser,
			MemberName:  username,
		}
	}

	return &GroupMembers{
		Members:       members,
		Total:         total,
		Filter:        filter,
		SortDirection: sortDirection,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// IsUserInGroup reports whether the user is a member of the group.
func (d *InternalDirectory) IsUserInGroup(groupName, username string) (bool, error) {
	const op = "is user in group"

	group, err := d.findGroup(d.db, groupName)
	if err != nil {
		return false, coerce(op, d.directoryID, err)
	}

	user, err := d.findUser(d.db, username)
	if err != nil {
		return false, coerce(op, d.directoryID, err)
	}

	var count int64

	err = d.db.Model(&models.GroupUser{}).
		Where("group_id = ? AND user_id = ?", group.ID, user.ID).
		Count(&count).Error
	if err != nil {
		return false, coerce(op, d.directoryID, err)
	}

	return count > 0, nil
}

// AddRoleToGroup assigns a role to a group. Assigning an already assigned
// role is a no-op.
func (d *InternalDirectory) AddRoleToGroup(groupName, roleCode string) error {
	const op = "add role to group"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		group, err := d.findGroup(tx, groupName)
		if err != nil {
			return err
		}

		if err := roleExists(tx, roleCode); err != nil {
			return err
		}

		var count int64

		err = tx.Model(&models.GroupRole{}).
			Where("group_id = ? AND role_code = ?", group.ID, roleCode).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check group role: %w", err)
		}

		if count > 0 {
			return nil
		}

		if err := tx.Create(&models.GroupRole{GroupID: group.ID, RoleCode: roleCode}).Error; err != nil {
			return fmt.Errorf("failed to add role to group: %w", err)
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// RemoveRoleFromGroup removes a role assignment from a group.
func (d *InternalDirectory) RemoveRoleFromGroup(groupName, roleCode string) error {
	const op = "remove role from group"

	err := d.db.Transaction(func(tx *gorm.DB) error {
		group, err := d.findGroup(tx, groupName)
		if err != nil {
			return err
		}

		result := tx.Where("group_id = ? AND role_code = ?", group.ID, roleCode).Delete(&models.GroupRole{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove role from group: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return ErrGroupRoleNotFound
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// GetRoleCodesForGroup retrieves the codes of all roles assigned to a group.
func (d *InternalDirectory) GetRoleCodesForGroup(groupName string) ([]string, error) {
	const op = "get role codes for group"

	group, err := d.findGroup(d.db, groupName)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	codes, err := roleCodesForGroupIDs(d.db, []string{group.ID})
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	return codes, nil
}

// GetRoleCodesForUser retrieves the codes of all roles the user receives
// through group membership.
func (d *InternalDirectory) GetRoleCodesForUser(username string) ([]string, error) {
	const op = "get role codes for user"

	user, err := d.findUser(d.db, username)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	var codes []string

	err = d.db.Table("group_roles").
		Distinct("group_roles.role_code").
		Joins("JOIN group_users ON group_users.group_id = group_roles.group_id").
		Where("group_users.user_id = ?", user.ID).
		Order("group_roles.role_code").
		Pluck("group_roles.role_code", &codes).Error
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	return codes, nil
}

// GetRolesForGroup retrieves the role assignments for a group.
func (d *InternalDirectory) GetRolesForGroup(groupName string) ([]GroupRole, error) {
	codes, err := d.GetRoleCodesForGroup(groupName)
	if err != nil {
		return nil, err
	}

	roles := make([]GroupRole, len(codes))
	for i, code := range codes {
		roles[i] = GroupRole{
			DirectoryID: d.directoryID,
			GroupName:   groupName,
			RoleCode:    code,
		}
	}

	return roles, nil
}

// GetFunctionCodesForUser retrieves the codes of all functions the user
// receives through roles assigned to their groups.
func (d *InternalDirectory) GetFunctionCodesForUser(username string) ([]string, error) {
	const op = "get function codes for user"

	user, err := d.findUser(d.db, username)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	var codes []string

	err = d.db.Table("role_functions").
		Distinct("role_functions.function_code").
		Joins("JOIN group_roles ON group_roles.role_code = role_functions.role_code").
		Joins("JOIN group_users ON group_users.group_id = group_roles.group_id").
		Where("group_users.user_id = ?", user.ID).
		Order("role_functions.function_code").
		Pluck("role_functions.function_code", &codes).Error
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	return codes, nil
}

// roleExists verifies that a role code exists.
func roleExists(tx *gorm.DB, roleCode string) error {
	var count int64
	if err := tx.Model(&models.Role{}).Where("code = ?", roleCode).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to query role %s: %w", roleCode, err)
	}

	if count == 0 {
		return ErrRoleNotFound
	}

	return nil
}

// roleCodesForGroupIDs retrieves the distinct role codes mapped to the
// given local group IDs.
func roleCodesForGroupIDs(tx *gorm.DB, groupIDs []string) ([]string, error) {
	if len(groupIDs) == 0 {
		return []string{}, nil
	}

	var codes []string

	err := tx.Model(&models.GroupRole{}).
		Distinct("role_code").
		Where("group_id IN ?", groupIDs).
		Order("role_code").
		Pluck("role_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query group roles: %w", err)
	}

	return codes, nil
}
