package directory

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/uniuri"
)

const (
	// ldapConnectTimeout bounds connection establishment to the LDAP server.
	ldapConnectTimeout = 15 * time.Second
	// ldapReadTimeout bounds individual LDAP requests.
	ldapReadTimeout = 60 * time.Second

	// DefaultMaxFilteredEntries limits how many entries a filtered LDAP
	// listing retrieves before filtering and paging in memory.
	DefaultMaxFilteredEntries = 100

	// truncatedListingPlaceholder is the sentinel name appended to a listing
	// whose backing search hit the size limit.
	truncatedListingPlaceholder = "(more entries available)"
)

// LDAPDirectory is the LDAP-backed directory provider.
//
// Identity data lives on the remote LDAP server; the relational store is
// used only for group-to-role mappings, because LDAP has no native role
// concept in this design. Every public operation opens a fresh
// authenticated connection and closes it when done; connections are never
// pooled or reused across calls.
type LDAPDirectory struct {
	directoryID string
	db          *gorm.DB

	capabilities Capabilities

	host         string
	port         int
	useSSL       bool
	bindDN       string
	bindPassword string

	userBaseDN             string
	userObjectClass        string
	usernameAttribute      string
	nameAttribute          string
	preferredNameAttribute string
	emailAttribute         string
	phoneAttribute         string
	mobileAttribute        string

	groupBaseDN               string
	groupObjectClass          string
	groupNameAttribute        string
	groupDescriptionAttribute string
	groupMemberAttribute      string

	maxFilteredUsers        int
	maxFilteredGroups       int
	maxFilteredGroupMembers int
}

// requiredParam returns the named parameter value or an
// ErrInvalidConfiguration if it is missing or empty.
func requiredParam(params Parameters, name string) (string, error) {
	v := params.String(name, "")
	if v == "" {
		return "", fmt.Errorf("%w: missing required parameter %s", ErrInvalidConfiguration, name)
	}

	return v, nil
}

// NewLDAPDirectory creates an LDAP directory provider from its
// configuration parameters. Required parameters are validated eagerly so a
// misconfigured directory fails at construction rather than first use.
func NewLDAPDirectory(directoryID string, params Parameters, db *gorm.DB) (Provider, error) { //nolint:funlen
	d := &LDAPDirectory{
		directoryID: directoryID,
		db:          db,
	}

	var err error

	required := []struct {
		name   string
		target *string
	}{
		{"Host", &d.host},
		{"BindDN", &d.bindDN},
		{"BindPassword", &d.bindPassword},
		{"UserBaseDN", &d.userBaseDN},
		{"UserObjectClass", &d.userObjectClass},
		{"UserUsernameAttribute", &d.usernameAttribute},
		{"UserNameAttribute", &d.nameAttribute},
		{"GroupBaseDN", &d.groupBaseDN},
		{"GroupObjectClass", &d.groupObjectClass},
		{"GroupNameAttribute", &d.groupNameAttribute},
		{"GroupMemberAttribute", &d.groupMemberAttribute},
	}

	for _, p := range required {
		if *p.target, err = requiredParam(params, p.name); err != nil {
			return nil, err
		}
	}

	if !params.Contains("Port") {
		return nil, fmt.Errorf("%w: missing required parameter Port", ErrInvalidConfiguration)
	}

	if d.port, err = params.Int("Port", 0); err != nil {
		return nil, err
	}

	if d.useSSL, err = params.Bool("UseSSL", false); err != nil {
		return nil, err
	}

	// Optional attribute mappings default to common inetOrgPerson attributes.
	d.preferredNameAttribute = params.String("UserPreferredNameAttribute", "displayName")
	d.emailAttribute = params.String("UserEmailAttribute", "mail")
	d.phoneAttribute = params.String("UserPhoneAttribute", "telephoneNumber")
	d.mobileAttribute = params.String("UserMobileAttribute", "mobile")
	d.groupDescriptionAttribute = params.String("GroupDescriptionAttribute", "description")

	if d.maxFilteredUsers, err = params.Int("MaxFilteredUsers", DefaultMaxFilteredEntries); err != nil {
		return nil, err
	}

	if d.maxFilteredGroups, err = params.Int("MaxFilteredGroups", DefaultMaxFilteredEntries); err != nil {
		return nil, err
	}

	if d.maxFilteredGroupMembers, err = params.Int("MaxFilteredGroupMembers", DefaultMaxFilteredEntries); err != nil {
		return nil, err
	}

	// Administrative capabilities are individually configurable and default
	// to enabled. Password expiry, password history and user locks are
	// always unsupported: the directory protocol has no native concept of
	// the first two in this design, and lockout detection is unimplemented.
	caps := Capabilities{}

	if caps.AdminChangePassword, err = params.Bool("SupportsAdminChangePassword", true); err != nil {
		return nil, err
	}

	if caps.ChangePassword, err = params.Bool("SupportsChangePassword", true); err != nil {
		return nil, err
	}

	if caps.GroupAdministration, err = params.Bool("SupportsGroupAdministration", true); err != nil {
		return nil, err
	}

	if caps.GroupMemberAdministration, err = params.Bool("SupportsGroupMemberAdministration", true); err != nil {
		return nil, err
	}

	if caps.UserAdministration, err = params.Bool("SupportsUserAdministration", true); err != nil {
		return nil, err
	}

	d.capabilities = caps

	return d, nil
}

// Capabilities returns the capability descriptor for this directory.
func (d *LDAPDirectory) Capabilities() Capabilities {
	return d.capabilities
}

// unavailable wraps err into an UnavailableError for this directory.
func (d *LDAPDirectory) unavailable(op string, err error) error {
	return &UnavailableError{Op: op, DirectoryID: d.directoryID, Err: err}
}

// connect opens a fresh connection and binds with the service account.
// The caller must close the returned connection.
func (d *LDAPDirectory) connect() (*ldap.Conn, error) {
	hostPort := net.JoinHostPort(d.host, strconv.Itoa(d.port))

	ldapURL := "ldap://" + hostPort
	opts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: ldapConnectTimeout}),
	}

	if d.useSSL {
		ldapURL = "ldaps://" + hostPort
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{
			ServerName: d.host,
			MinVersion: tls.VersionTLS12,
		}))
	}

	conn, err := ldap.DialURL(ldapURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	conn.SetTimeout(ldapReadTimeout)

	if err := conn.Bind(d.bindDN, d.bindPassword); err != nil {
		closeConn(conn)

		return nil, fmt.Errorf("failed to bind with service account: %w", err)
	}

	return conn, nil
}

// closeConn closes an LDAP connection, logging (but not propagating) any
// close failure.
func closeConn(conn *ldap.Conn) {
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close LDAP connection")
	}
}

// userAttributes lists the protocol attributes retrieved for user entries.
func (d *LDAPDirectory) userAttributes() []string {
	return []string{
		d.usernameAttribute,
		d.nameAttribute,
		d.preferredNameAttribute,
		d.emailAttribute,
		d.phoneAttribute,
		d.mobileAttribute,
		"dn",
	}
}

// groupAttributes lists the protocol attributes retrieved for group entries.
func (d *LDAPDirectory) groupAttributes() []string {
	return []string{
		d.groupNameAttribute,
		d.groupDescriptionAttribute,
		d.groupMemberAttribute,
		"dn",
	}
}

// findUserEntry resolves a username to its directory entry via a filtered
// subtree search. Zero matches is a not-found; more than one match means
// the directory state is ambiguous, which this layer cannot repair, and is
// reported as an infrastructure failure.
func (d *LDAPDirectory) findUserEntry(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	filter := fmt.Sprintf(
		"(&(objectClass=%s)(%s=%s))",
		ldap.EscapeFilter(d.userObjectClass),
		d.usernameAttribute,
		ldap.EscapeFilter(username),
	)

	searchRequest := ldap.NewSearchRequest(
		d.userBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		filter,
		d.userAttributes(),
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for user %s: %w", username, err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, fmt.Errorf("multiple entries found for user %s", username)
	}
}

// findGroupEntry resolves a group name to its directory entry.
func (d *LDAPDirectory) findGroupEntry(conn *ldap.Conn, groupName string) (*ldap.Entry, error) {
	filter := fmt.Sprintf(
		"(&(objectClass=%s)(%s=%s))",
		ldap.EscapeFilter(d.groupObjectClass),
		d.groupNameAttribute,
		ldap.EscapeFilter(groupName),
	)

	searchRequest := ldap.NewSearchRequest(
		d.groupBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		filter,
		d.groupAttributes(),
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for group %s: %w", groupName, err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrGroupNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, fmt.Errorf("multiple entries found for group %s", groupName)
	}
}

// userFromEntry maps a directory entry to a user record. Absent optional
// attributes map to empty strings.
func (d *LDAPDirectory) userFromEntry(entry *ldap.Entry) models.User {
	return models.User{
		DirectoryID:   d.directoryID,
		Username:      entry.GetAttributeValue(d.usernameAttribute),
		Status:        models.UserStatusActive,
		Name:          entry.GetAttributeValue(d.nameAttribute),
		PreferredName: entry.GetAttributeValue(d.preferredNameAttribute),
		Email:         entry.GetAttributeValue(d.emailAttribute),
		Phone:         entry.GetAttributeValue(d.phoneAttribute),
		Mobile:        entry.GetAttributeValue(d.mobileAttribute),
	}
}

// groupFromEntry maps a directory entry to a group record. The local UUID
// is filled in only once a role mapping row exists for the group.
func (d *LDAPDirectory) groupFromEntry(entry *ldap.Entry) models.Group {
	return models.Group{
		DirectoryID: d.directoryID,
		Name:        entry.GetAttributeValue(d.groupNameAttribute),
		Description: entry.GetAttributeValue(d.groupDescriptionAttribute),
	}
}

// memberDNs returns the group's member attribute values with the group's
// synthetic self-membership filtered out. Groups are seeded with themselves
// as a member on creation because some group object classes disallow an
// empty member list; that self-reference is never reported as a member.
func (d *LDAPDirectory) memberDNs(entry *ldap.Entry) []string {
	values := entry.GetAttributeValues(d.groupMemberAttribute)

	members := make([]string, 0, len(values))

	for _, value := range values {
		if strings.EqualFold(value, entry.DN) {
			continue
		}

		members = append(members, value)
	}

	return members
}

// memberNameFromDN extracts the leading RDN value from a member DN, which
// is the member's username for user entries. A DN that cannot be parsed is
// returned verbatim.
func memberNameFromDN(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return dn
	}

	return parsed.RDNs[0].Attributes[0].Value
}

// Authenticate resolves the user's DN with the service bind, then attempts
// a second bind using the user's own credentials.
//
// Lockout and password-expiry conditions are not detected on this path:
// the capability descriptor reports UserLocks and PasswordExpiry as
// unsupported, and callers must not rely on ErrUserLocked or
// ErrExpiredPassword from an LDAP-backed directory.
func (d *LDAPDirectory) Authenticate(username, password string) error {
	const op = "authenticate"

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findUserEntry(conn, username)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	if err := conn.Bind(entry.DN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return ErrAuthenticationFailed
		}

		return d.unavailable(op, err)
	}

	return nil
}

// ChangePassword changes a user's password after verifying the old one by
// binding as the user.
func (d *LDAPDirectory) ChangePassword(username, oldPassword, newPassword string) error {
	const op = "change password"

	if !d.capabilities.ChangePassword {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findUserEntry(conn, username)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	if err := conn.Bind(entry.DN, oldPassword); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return ErrAuthenticationFailed
		}

		return d.unavailable(op, err)
	}

	passwordModify := ldap.NewPasswordModifyRequest(entry.DN, oldPassword, newPassword)
	if _, err := conn.PasswordModify(passwordModify); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to modify password: %w", err))
	}

	return nil
}

// AdminChangePassword sets a user's password using the service account.
// The expirePassword, lockUser and resetPasswordHistory flags are ignored:
// the directory protocol has no native expiry, lockout or history concept
// in this design.
func (d *LDAPDirectory) AdminChangePassword(
	username, newPassword string,
	_, _, _ bool,
) error {
	const op = "admin change password"

	if !d.capabilities.AdminChangePassword {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findUserEntry(conn, username)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	passwordModify := ldap.NewPasswordModifyRequest(entry.DN, "", newPassword)
	if _, err := conn.PasswordModify(passwordModify); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to modify password: %w", err))
	}

	return nil
}

// ResetPassword sets a new password using the service account. Password
// history is not tracked for LDAP-backed directories, so no reuse check
// applies.
func (d *LDAPDirectory) ResetPassword(username, newPassword string) error {
	const op = "reset password"

	if !d.capabilities.AdminChangePassword {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findUserEntry(conn, username)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	passwordModify := ldap.NewPasswordModifyRequest(entry.DN, "", newPassword)
	if _, err := conn.PasswordModify(passwordModify); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to modify password: %w", err))
	}

	return nil
}

// userDN builds the distinguished name for a new user entry.
func (d *LDAPDirectory) userDN(username string) string {
	return fmt.Sprintf("%s=%s,%s", d.usernameAttribute, ldap.EscapeDN(username), d.userBaseDN)
}

// groupDN builds the distinguished name for a new group entry.
func (d *LDAPDirectory) groupDN(groupName string) string {
	return fmt.Sprintf("%s=%s,%s", d.groupNameAttribute, ldap.EscapeDN(groupName), d.groupBaseDN)
}

// CreateUser creates a new user entry. An empty password is replaced with
// a securely generated random one. The expiredPassword and userLocked
// flags are ignored for LDAP-backed directories.
func (d *LDAPDirectory) CreateUser(user *models.User, _, _ bool) error {
	const op = "create user"

	if !d.capabilities.UserAdministration {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	_, err = d.findUserEntry(conn, user.Username)
	if err == nil {
		return ErrDuplicateUser
	}

	if !errors.Is(err, ErrUserNotFound) {
		return coerce(op, d.directoryID, err)
	}

	dn := d.userDN(user.Username)

	addRequest := ldap.NewAddRequest(dn, nil)
	addRequest.Attribute("objectClass", []string{"top", d.userObjectClass})
	addRequest.Attribute(d.usernameAttribute, []string{user.Username})
	addRequest.Attribute(d.nameAttribute, []string{user.Name})

	optional := []struct {
		attribute string
		value     string
	}{
		{d.preferredNameAttribute, user.PreferredName},
		{d.emailAttribute, user.Email},
		{d.phoneAttribute, user.Phone},
		{d.mobileAttribute, user.Mobile},
	}

	for _, attr := range optional {
		if attr.value != "" {
			addRequest.Attribute(attr.attribute, []string{attr.value})
		}
	}

	if err := conn.Add(addRequest); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to create user entry: %w", err))
	}

	password := user.Password
	if password == "" {
		password = uniuri.NewLen(generatedPasswordLength)
	}

	// The entry's password never reaches the relational store.
	user.Password = ""
	user.DirectoryID = d.directoryID

	passwordModify := ldap.NewPasswordModifyRequest(dn, "", password)
	if _, err := conn.PasswordModify(passwordModify); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to set password: %w", err))
	}

	return nil
}

// replaceOrDelete records an attribute modification: a changed non-empty
// value is replaced, a now-empty value is removed.
func replaceOrDelete(modifyRequest *ldap.ModifyRequest, attribute, existing, desired string) {
	if existing == desired {
		return
	}

	if desired == "" {
		modifyRequest.Delete(attribute, []string{})

		return
	}

	modifyRequest.Replace(attribute, []string{desired})
}

// UpdateUser updates a user entry's profile attributes. The expirePassword
// and lockUser flags are ignored for LDAP-backed directories.
func (d *LDAPDirectory) UpdateUser(user *models.User, _, _ bool) error {
	const op = "update user"

	if !d.capabilities.UserAdministration {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findUserEntry(conn, user.Username)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	modifyRequest := ldap.NewModifyRequest(entry.DN, nil)

	replaceOrDelete(modifyRequest, d.nameAttribute, entry.GetAttributeValue(d.nameAttribute), user.Name)
	replaceOrDelete(
		modifyRequest,
		d.preferredNameAttribute,
		entry.GetAttributeValue(d.preferredNameAttribute),
		user.PreferredName,
	)
	replaceOrDelete(modifyRequest, d.emailAttribute, entry.GetAttributeValue(d.emailAttribute), user.Email)
	replaceOrDelete(modifyRequest, d.phoneAttribute, entry.GetAttributeValue(d.phoneAttribute), user.Phone)
	replaceOrDelete(modifyRequest, d.mobileAttribute, entry.GetAttributeValue(d.mobileAttribute), user.Mobile)

	if len(modifyRequest.Changes) == 0 {
		return nil
	}

	if err := conn.Modify(modifyRequest); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to update user entry: %w", err))
	}

	return nil
}

// DeleteUser deletes a user entry.
func (d *LDAPDirectory) DeleteUser(username string) error {
	const op = "delete user"

	if !d.capabilities.UserAdministration {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findUserEntry(conn, username)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	if err := conn.Del(ldap.NewDelRequest(entry.DN, nil)); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to delete user entry: %w", err))
	}

	return nil
}

// GetUser retrieves a user by username.
func (d *LDAPDirectory) GetUser(username string) (*models.User, error) {
	const op = "get user"

	conn, err := d.connect()
	if err != nil {
		return nil, d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findUserEntry(conn, username)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	user := d.userFromEntry(entry)

	return &user, nil
}

// IsExistingUser reports whether a user with the given username exists.
func (d *LDAPDirectory) IsExistingUser(username string) (bool, error) {
	const op = "is existing user"

	conn, err := d.connect()
	if err != nil {
		return false, d.unavailable(op, err)
	}
	defer closeConn(conn)

	_, err = d.findUserEntry(conn, username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}

	if err != nil {
		return false, d.unavailable(op, err)
	}

	return true, nil
}

// searchAll performs a size-limited subtree search. A size-limit-exceeded
// result is not an error: the partial entry set is returned along with a
// flag so listings can surface a placeholder instead of failing.
func (d *LDAPDirectory) searchAll(
	conn *ldap.Conn,
	baseDN, filter string,
	attributes []string,
	sizeLimit int,
) ([]*ldap.Entry, bool, error) {
	searchRequest := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		sizeLimit,
		0,
		false,
		filter,
		attributes,
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) && searchResult != nil {
			log.Warn().
				Str("directory", d.directoryID).
				Str("base_dn", baseDN).
				Int("size_limit", sizeLimit).
				Msg("LDAP search hit the size limit, result truncated")

			return searchResult.Entries, true, nil
		}

		return nil, false, fmt.Errorf("failed to search %s: %w", baseDN, err)
	}

	return searchResult.Entries, false, nil
}

// matchUserFilter reports whether the user matches a case-insensitive
// substring filter on username or name. Substring matching happens here
// rather than in the protocol filter because not all object classes
// guarantee case-insensitive substring matching server-side.
func matchUserFilter(user models.User, filter string) bool {
	if filter == "" {
		return true
	}

	needle := strings.ToLower(filter)

	return strings.Contains(strings.ToLower(user.Username), needle) ||
		strings.Contains(strings.ToLower(user.Name), needle)
}

// sortUsers sorts users in place by the given attribute and direction.
func sortUsers(users []models.User, sortBy UserSortBy, sortDirection SortDirection) {
	key := func(u models.User) string {
		switch sortBy {
		case UserSortByName:
			return u.Name
		case UserSortByPreferredName:
			return u.PreferredName
		case UserSortByEmail:
			return u.Email
		case UserSortByUsername:
			return u.Username
		default:
			return u.Username
		}
	}

	sort.SliceStable(users, func(i, j int) bool {
		less := strings.ToLower(key(users[i])) < strings.ToLower(key(users[j]))
		if sortDirection == SortDescending {
			return !less
		}

		return less
	})
}

// GetUsers retrieves a filtered, sorted page of users. The full
// (size-limited) result set is retrieved and filtered, sorted and paged in
// memory; the protocol has no native paging in this design.
func (d *LDAPDirectory) GetUsers(
	filter string,
	sortBy UserSortBy,
	sortDirection SortDirection,
	page, pageSize int,
) (*Users, error) {
	const op = "get users"

	page, pageSize = normalizePage(page, pageSize)

	conn, err := d.connect()
	if err != nil {
		return nil, d.unavailable(op, err)
	}
	defer closeConn(conn)

	searchFilter := fmt.Sprintf("(objectClass=%s)", ldap.EscapeFilter(d.userObjectClass))

	entries, truncated, err := d.searchAll(conn, d.userBaseDN, searchFilter, d.userAttributes(), d.maxFilteredUsers)
	if err != nil {
		return nil, d.unavailable(op, err)
	}

	users := make([]models.User, 0, len(entries))

	for _, entry := range entries {
		user := d.userFromEntry(entry)
		if matchUserFilter(user, filter) {
			users = append(users, user)
		}
	}

	sortUsers(users, sortBy, sortDirection)

	if truncated {
		users = append(users, models.User{
			DirectoryID: d.directoryID,
			Username:    truncatedListingPlaceholder,
		})
	}

	return &Users{
		Users:         pageSlice(users, page, pageSize),
		Total:         int64(len(users)),
		Filter:        filter,
		SortBy:        sortBy,
		SortDirection: sortDirection,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// FindUsers retrieves the users matching all the given attribute
// predicates (case-insensitive substring match per attribute).
func (d *LDAPDirectory) FindUsers(attributes []Attribute) ([]models.User, error) {
	const op = "find users"

	// Validate attribute names before touching the network.
	for _, attr := range attributes {
		if _, ok := userAttributeColumn(attr.Name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAttribute, attr.Name)
		}
	}

	conn, err := d.connect()
	if err != nil {
		return nil, d.unavailable(op, err)
	}
	defer closeConn(conn)

	searchFilter := fmt.Sprintf("(objectClass=%s)", ldap.EscapeFilter(d.userObjectClass))

	entries, _, err := d.searchAll(conn, d.userBaseDN, searchFilter, d.userAttributes(), d.maxFilteredUsers)
	if err != nil {
		return nil, d.unavailable(op, err)
	}

	var users []models.User

	for _, entry := range entries {
		user := d.userFromEntry(entry)
		if matchUserAttributes(user, attributes) {
			users = append(users, user)
		}
	}

	sortUsers(users, UserSortByUsername, SortAscending)

	return users, nil
}

// matchUserAttributes reports whether the user matches every attribute
// predicate.
func matchUserAttributes(user models.User, attributes []Attribute) bool {
	value := func(name string) string {
		switch strings.ToLower(name) {
		case "username":
			return user.Username
		case "name":
			return user.Name
		case "preferredname":
			return user.PreferredName
		case "email":
			return user.Email
		case "phone":
			return user.Phone
		case "mobile":
			return user.Mobile
		default:
			return ""
		}
	}

	for _, attr := range attributes {
		if !strings.Contains(strings.ToLower(value(attr.Name)), strings.ToLower(attr.Value)) {
			return false
		}
	}

	return true
}

// CreateGroup creates a new group entry. The group is seeded with itself
// as its own member because some group object classes disallow an empty
// member list; the self-membership is filtered out of every listing.
func (d *LDAPDirectory) CreateGroup(group *models.Group) error {
	const op = "create group"

	if !d.capabilities.GroupAdministration {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	_, err = d.findGroupEntry(conn, group.Name)
	if err == nil {
		return ErrDuplicateGroup
	}

	if !errors.Is(err, ErrGroupNotFound) {
		return coerce(op, d.directoryID, err)
	}

	dn := d.groupDN(group.Name)

	addRequest := ldap.NewAddRequest(dn, nil)
	addRequest.Attribute("objectClass", []string{"top", d.groupObjectClass})
	addRequest.Attribute(d.groupNameAttribute, []string{group.Name})
	addRequest.Attribute(d.groupMemberAttribute, []string{dn})

	if group.Description != "" {
		addRequest.Attribute(d.groupDescriptionAttribute, []string{group.Description})
	}

	if err := conn.Add(addRequest); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to create group entry: %w", err))
	}

	group.DirectoryID = d.directoryID

	return nil
}

// UpdateGroup updates a group entry's description.
func (d *LDAPDirectory) UpdateGroup(group *models.Group) error {
	const op = "update group"

	if !d.capabilities.GroupAdministration {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findGroupEntry(conn, group.Name)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	modifyRequest := ldap.NewModifyRequest(entry.DN, nil)
	replaceOrDelete(
		modifyRequest,
		d.groupDescriptionAttribute,
		entry.GetAttributeValue(d.groupDescriptionAttribute),
		group.Description,
	)

	if len(modifyRequest.Changes) == 0 {
		return nil
	}

	if err := conn.Modify(modifyRequest); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to update group entry: %w", err))
	}

	return nil
}

// DeleteGroup deletes a group entry. A group that still has members beyond
// its synthetic self-membership cannot be deleted. The group's local role
// mappings are removed in the same operation.
func (d *LDAPDirectory) DeleteGroup(groupName string) error {
	const op = "delete group"

	if !d.capabilities.GroupAdministration {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findGroupEntry(conn, groupName)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	if len(d.memberDNs(entry)) > 0 {
		return ErrExistingGroupMembers
	}

	if err := conn.Del(ldap.NewDelRequest(entry.DN, nil)); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to delete group entry: %w", err))
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group

		err := tx.Where(whereDirectoryAndGroupName, d.directoryID, groupName).First(&group).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No local role mappings were ever created for this group.
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to query local group: %w", err)
		}

		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete group roles: %w", err)
		}

		if err := tx.Delete(&models.Group{}, "id = ?", group.ID).Error; err != nil {
			return fmt.Errorf("failed to delete local group: %w", err)
		}

		return nil
	})
	if err != nil {
		return d.unavailable(op, err)
	}

	return nil
}

// GetGroup retrieves a group by name.
func (d *LDAPDirectory) GetGroup(groupName string) (*models.Group, error) {
	const op = "get group"

	conn, err := d.connect()
	if err != nil {
		return nil, d.unavailable(op, err)
	}
	defer closeConn(conn)

	entry, err := d.findGroupEntry(conn, groupName)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	group := d.groupFromEntry(entry)

	return &group, nil
}

// GetGroupNames retrieves the names of all groups.
func (d *LDAPDirectory) GetGroupNames() ([]string, error) {
	const op = "get group names"

	conn, err := d.connect()
	if err != nil {
		return nil, d.unavailable(op, err)
	}
	defer closeConn(conn)

	searchFilter := fmt.Sprintf("(objectClass=%s)", ldap.EscapeFilter(d.groupObjectClass))

	entries, _, err := d.searchAll(conn, d.groupBaseDN, searchFilter, d.groupAttributes(), d.maxFilteredGroups)
	if err != nil {
		return nil, d.unavailable(op, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.GetAttributeValue(d.groupNameAttribute))
	}

	sort.Strings(names)

	return names, nil
}

// GetGroups retrieves a filtered, sorted page of groups. Filtering,
// sorting and paging happen in memory over the size-limited result set.
func (d *LDAPDirectory) GetGroups(
	filter string,
	sortDirection SortDirection,
	page, pageSize int,
) (*Groups, error) {
	const op = "get groups"

	page, pageSize = normalizePage(page, pageSize)

	conn, err := d.connect()
	if err != nil {
		return nil, d.unavailable(op, err)
	}
	defer closeConn(conn)

	searchFilter := fmt.Sprintf("(objectClass=%s)", ldap.EscapeFilter(d.groupObjectClass))

	entries, truncated, err := d.searchAll(conn, d.groupBaseDN, searchFilter, d.groupAttributes(), d.maxFilteredGroups)
	if err != nil {
		return nil, d.unavailable(op, err)
	}

	needle := strings.ToLower(filter)

	groups := make([]models.Group, 0, len(entries))

	for _, entry := range entries {
		group := d.groupFromEntry(entry)
		if filter == "" || strings.Contains(strings.ToLower(group.Name), needle) {
			groups = append(groups, group)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		less := strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
		if sortDirection == SortDescending {
			return !less
		}

		return less
	})

	if truncated {
		groups = append(groups, models.Group{
			DirectoryID: d.directoryID,
			Name:        truncatedListingPlaceholder,
		})
	}

	return &Groups{
		Groups:        pageSlice(groups, page, pageSize),
		Total:         int64(len(groups)),
		Filter:        filter,
		SortDirection: sortDirection,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// GetGroupsForUser retrieves all groups the user is a member of.
func (d *LDAPDirectory) GetGroupsForUser(username string) ([]models.Group, error) {
	const op = "get groups for user"

	conn, err := d.connect()
	if err != nil {
		return nil, d.unavailable(op, err)
	}
	defer closeConn(conn)

	entries, err := d.groupEntriesForUser(conn, username)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	groups := make([]models.Group, 0, len(entries))
	for _, entry := range entries {
		groups = append(groups, d.groupFromEntry(entry))
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})

	return groups, nil
}

// groupEntriesForUser resolves the user's DN, then searches for the groups
// carrying that DN in their member attribute.
func (d *LDAPDirectory) groupEntriesForUser(conn *ldap.Conn, username string) ([]*ldap.Entry, error) {
	userEntry, err := d.findUserEntry(conn, username)
	if err != nil {
		return nil, err
	}

	searchFilter := fmt.Sprintf(
		"(&(objectClass=%s)(%s=%s))",
		ldap.EscapeFilter(d.groupObjectClass),
		d.groupMemberAttribute,
		ldap.EscapeFilter(userEntry.DN),
	)

	entries, _, err := d.searchAll(conn, d.groupBaseDN, searchFilter, d.groupAttributes(), d.maxFilteredGroups)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// GetGroupNamesForUser retrieves the names of all groups the user is a
// member of.
func (d *LDAPDirectory) GetGroupNamesForUser(username string) ([]string, error) {
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

// AddUserToGroup adds a user to a group.
//
// The member attribute is rewritten wholesale: the current value list is
// read, the user's DN appended, and the full list replaced. There is no
// optimistic concurrency guard, so two concurrent membership edits on the
// same group race and the last writer wins.
func (d *LDAPDirectory) AddUserToGroup(groupName, username string) error {
	const op = "add user to group"

	if !d.capabilities.GroupMemberAdministration {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	groupEntry, err := d.findGroupEntry(conn, groupName)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	userEntry, err := d.findUserEntry(conn, username)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	values := groupEntry.GetAttributeValues(d.groupMemberAttribute)

	for _, value := range values {
		if strings.EqualFold(value, userEntry.DN) {
			// Already a member.
			return nil
		}
	}

	modifyRequest := ldap.NewModifyRequest(groupEntry.DN, nil)
	modifyRequest.Replace(d.groupMemberAttribute, append(values, userEntry.DN))

	if err := conn.Modify(modifyRequest); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to add member: %w", err))
	}

	return nil
}

// RemoveUserFromGroup removes a user from a group using the same
// read-modify-replace sequence as AddUserToGroup, with the same race.
func (d *LDAPDirectory) RemoveUserFromGroup(groupName, username string) error {
	const op = "remove user from group"

	if !d.capabilities.GroupMemberAdministration {
		return d.unavailable(op, errCapabilityNotSupported)
	}

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	groupEntry, err := d.findGroupEntry(conn, groupName)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	userEntry, err := d.findUserEntry(conn, username)
	if err != nil {
		return coerce(op, d.directoryID, err)
	}

	values := groupEntry.GetAttributeValues(d.groupMemberAttribute)
	remaining := make([]string, 0, len(values))
	found := false

	for _, value := range values {
		if strings.EqualFold(value, userEntry.DN) {
			found = true

			continue
		}

		remaining = append(remaining, value)
	}

	if !found {
		return ErrGroupMemberNotFound
	}

	// The member list must not go empty for group object classes that
	// require at least one member, so the group's self-reference is
	// restored if the last real member leaves.
	if len(remaining) == 0 {
		remaining = []string{groupEntry.DN}
	}

	modifyRequest := ldap.NewModifyRequest(groupEntry.DN, nil)
	modifyRequest.Replace(d.groupMemberAttribute, remaining)

	if err := conn.Modify(modifyRequest); err != nil {
		return d.unavailable(op, fmt.Errorf("failed to remove member: %w", err))
	}

	return nil
}

// AddMemberToGroup adds a member of the given type to a group. Only user
// members exist in this design.
func (d *LDAPDirectory) AddMemberToGroup(groupName string, memberType GroupMemberType, memberName string) error {
	if memberType != GroupMemberTypeUser {
		return fmt.Errorf("%w: member type %s", ErrInvalidAttribute, memberType)
	}

	return d.AddUserToGroup(groupName, memberName)
}

// RemoveMemberFromGroup removes a member of the given type from a group.
func (d *LDAPDirectory) RemoveMemberFromGroup(groupName string, memberType GroupMemberType, memberName string) error {
	if memberType != GroupMemberTypeUser {
		return fmt.Errorf("%w: member type %s", ErrInvalidAttribute, memberType)
	}

	return d.RemoveUserFromGroup(groupName, memberName)
}

// GetMembersForGroup retrieves a filtered, sorted page of group members.
// Member names are derived from the member DNs, filtered and paged in
// memory. A member list larger than the configured maximum is truncated
// and a placeholder entry appended.
func (d *LDAPDirectory) GetMembersForGroup(
	groupName, filter string,
	sortDirection SortDirection,
	page, pageSize int,
) (*GroupMembers, error) {
	const op = "get members for group"

	page, pageSize = normalizePage(page, pageSize)

	conn, err := d.connect()
	if err != nil {
		return nil, d.unavailable(op, err)
	}
	defer closeConn(conn)

	groupEntry, err := d.findGroupEntry(conn, groupName)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	needle := strings.ToLower(filter)

	var names []string

	for _, dn := range d.memberDNs(groupEntry) {
		name := memberNameFromDN(dn)
		if filter == "" || strings.Contains(strings.ToLower(name), needle) {
			names = append(names, name)
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		less := strings.ToLower(names[i]) < strings.ToLower(names[j])
		if sortDirection == SortDescending {
			return !less
		}

		return less
	})

	if len(names) > d.maxFilteredGroupMembers {
		log.Warn().
			Str("directory", d.directoryID).
			Str("group", groupName).
			Int("members", len(names)).
			Int("max", d.maxFilteredGroupMembers).
			Msg("group member listing truncated")

		names = append(names[:d.maxFilteredGroupMembers], truncatedListingPlaceholder)
	}

	members := make([]GroupMember, len(names))
	for i, name := range names {
		members[i] = GroupMember{
			DirectoryID: d.directoryID,
			GroupName:   groupName,
			MemberType:  GroupMemberTypeUser,
			MemberName:  name,
		}
	}

	return &GroupMembers{
		Members:       pageSlice(members, page, pageSize),
		Total:         int64(len(members)),
		Filter:        filter,
		SortDirection: sortDirection,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// IsUserInGroup reports whether the user is a member of the group.
func (d *LDAPDirectory) IsUserInGroup(groupName, username string) (bool, error) {
	const op = "is user in group"

	conn, err := d.connect()
	if err != nil {
		return false, d.unavailable(op, err)
	}
	defer closeConn(conn)

	groupEntry, err := d.findGroupEntry(conn, groupName)
	if err != nil {
		return false, coerce(op, d.directoryID, err)
	}

	userEntry, err := d.findUserEntry(conn, username)
	if err != nil {
		return false, coerce(op, d.directoryID, err)
	}

	for _, value := range groupEntry.GetAttributeValues(d.groupMemberAttribute) {
		if strings.EqualFold(value, userEntry.DN) {
			return true, nil
		}
	}

	return false, nil
}

// localGroupID returns the durable local UUID for an LDAP-backed group,
// creating the mapping row on first use. The UUID joins the group to the
// role-mapping tables and is independent of the group's DN.
func (d *LDAPDirectory) localGroupID(tx *gorm.DB, groupName string) (string, error) {
	var group models.Group

	err := tx.Where(whereDirectoryAndGroupName, d.directoryID, groupName).First(&group).Error
	if err == nil {
		return group.ID, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to query local group: %w", err)
	}

	group = models.Group{
		ID:          uuid.NewString(),
		DirectoryID: d.directoryID,
		Name:        groupName,
	}

	if err := tx.Create(&group).Error; err != nil {
		return "", fmt.Errorf("failed to create local group: %w", err)
	}

	return group.ID, nil
}

// AddRoleToGroup assigns a role to a group. The group must exist on the
// LDAP server; the assignment itself lives in the relational side-table.
func (d *LDAPDirectory) AddRoleToGroup(groupName, roleCode string) error {
	const op = "add role to group"

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	if _, err := d.findGroupEntry(conn, groupName); err != nil {
		return coerce(op, d.directoryID, err)
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		if err := roleExists(tx, roleCode); err != nil {
			return err
		}

		groupID, err := d.localGroupID(tx, groupName)
		if err != nil {
			return err
		}

		var count int64

		err = tx.Model(&models.GroupRole{}).
			Where("group_id = ? AND role_code = ?", groupID, roleCode).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check group role: %w", err)
		}

		if count > 0 {
			return nil
		}

		if err := tx.Create(&models.GroupRole{GroupID: groupID, RoleCode: roleCode}).Error; err != nil {
			return fmt.Errorf("failed to add role to group: %w", err)
		}

		return nil
	})

	return coerce(op, d.directoryID, err)
}

// RemoveRoleFromGroup removes a role assignment from a group.
func (d *LDAPDirectory) RemoveRoleFromGroup(groupName, roleCode string) error {
	const op = "remove role from group"

	conn, err := d.connect()
	if err != nil {
		return d.unavailable(op, err)
	}
	defer closeConn(conn)

	if _, err := d.findGroupEntry(conn, groupName); err != nil {
		return coerce(op, d.directoryID, err)
	}

	err = d.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group

		err := tx.Where(whereDirectoryAndGroupName, d.directoryID, groupName).First(&group).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupRoleNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to query local group: %w", err)
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
func (d *LDAPDirectory) GetRoleCodesForGroup(groupName string) ([]string, error) {
	const op = "get role codes for group"

	conn, err := d.connect()
	if err != nil {
		return nil, d.unavailable(op, err)
	}
	defer closeConn(conn)

	if _, err := d.findGroupEntry(conn, groupName); err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	var group models.Group

	err = d.db.Where(whereDirectoryAndGroupName, d.directoryID, groupName).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The group exists on the LDAP server but has never had a role
		// assigned, so no mapping row exists yet.
		return []string{}, nil
	}

	if err != nil {
		return nil, d.unavailable(op, err)
	}

	codes, err := roleCodesForGroupIDs(d.db, []string{group.ID})
	if err != nil {
		return nil, d.unavailable(op, err)
	}

	return codes, nil
}

// GetRoleCodesForUser retrieves the codes of all roles the user receives
// through LDAP group membership via the local role-mapping tables.
func (d *LDAPDirectory) GetRoleCodesForUser(username string) ([]string, error) {
	const op = "get role codes for user"

	groupIDs, err := d.localGroupIDsForUser(username)
	if err != nil {
		return nil, coerce(op, d.directoryID, err)
	}

	codes, err := roleCodesForGroupIDs(d.db, groupIDs)
	if err != nil {
		return nil, d.unavailable(op, err)
	}

	return codes, nil
}

// localGroupIDsForUser resolves the user's LDAP groups and returns the
// local mapping UUIDs of those that have role assignments.
func (d *LDAPDirectory) localGroupIDsForUser(username string) ([]string, error) {
	conn, err := d.connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer closeConn(conn)

	entries, err := d.groupEntriesForUser(conn, username)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return []string{}, nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.ToLower(entry.GetAttributeValue(d.groupNameAttribute)))
	}

	var groupIDs []string

	err = d.db.Model(&models.Group{}).
		Where("directory_id = ? AND lower(name) IN ?", d.directoryID, names).
		Pluck("id", &groupIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query local groups: %w", err)
	}

	return groupIDs, nil
}

// GetRolesForGroup retrieves the role assignments for a group.
func (d *LDAPDirectory) GetRolesForGroup(groupName string) ([]GroupRole, error) {
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
// receives through roles assigned to their LDAP groups.
func (d *LDAPDirectory) GetFunctionCodesForUser(username string) ([]string, error) {
	const op = "get function codes for user"

	roleCodes, err := d.GetRoleCodesForUser(username)
	if err != nil {
		return nil, err
	}

	if len(roleCodes) == 0 {
		return []string{}, nil
	}

	var codes []string

	err = d.db.Model(&models.RoleFunction{}).
		Distinct("function_code").
		Where("role_code IN ?", roleCodes).
		Order("function_code").
		Pluck("function_code", &codes).Error
	if err != nil {
		return nil, d.unavailable(op, err)
	}

	return codes, nil
}
