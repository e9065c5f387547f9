package directory

// Capabilities describes which operations a directory backend supports.
// Callers must check the relevant capability before invoking an operation;
// invoking an unsupported operation fails with an UnavailableError.
type Capabilities struct {
	// AdminChangePassword indicates an administrator can change a user's password.
	AdminChangePassword bool `json:"adminChangePassword"`
	// ChangePassword indicates users can change their own password.
	ChangePassword bool `json:"changePassword"`
	// GroupAdministration indicates groups can be created, updated and deleted.
	GroupAdministration bool `json:"groupAdministration"`
	// GroupMemberAdministration indicates group members can be added and removed.
	GroupMemberAdministration bool `json:"groupMemberAdministration"`
	// PasswordExpiry indicates the directory tracks password expiry.
	PasswordExpiry bool `json:"passwordExpiry"`
	// PasswordHistory indicates the directory tracks password history.
	PasswordHistory bool `json:"passwordHistory"`
	// UserAdministration indicates users can be created, updated and deleted.
	UserAdministration bool `json:"userAdministration"`
	// UserLocks indicates the directory tracks and enforces user lockout.
	UserLocks bool `json:"userLocks"`
}
