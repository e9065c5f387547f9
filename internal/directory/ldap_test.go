package directory

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardpost/guardpost/internal/db/models"
)

// ldapTestParams returns a complete, valid LDAP parameter set.
func ldapTestParams() Parameters {
	return Parameters{
		{Name: "Host", Value: "ldap.example.com"},
		{Name: "Port", Value: "389"},
		{Name: "BindDN", Value: "cn=service,dc=example,dc=com"},
		{Name: "BindPassword", Value: "service-secret"},
		{Name: "UserBaseDN", Value: "ou=people,dc=example,dc=com"},
		{Name: "UserObjectClass", Value: "inetOrgPerson"},
		{Name: "UserUsernameAttribute", Value: "uid"},
		{Name: "UserNameAttribute", Value: "cn"},
		{Name: "GroupBaseDN", Value: "ou=groups,dc=example,dc=com"},
		{Name: "GroupObjectClass", Value: "groupOfNames"},
		{Name: "GroupNameAttribute", Value: "cn"},
		{Name: "GroupMemberAttribute", Value: "member"},
	}
}

// withoutParam returns a copy of params with the named parameter removed.
func withoutParam(params Parameters, name string) Parameters {
	out := make(Parameters, 0, len(params))

	for _, p := range params {
		if p.Name == name {
			continue
		}

		out = append(out, p)
	}

	return out
}

func TestNewLDAPDirectory(t *testing.T) {
	provider, err := NewLDAPDirectory(testDirectoryID, ldapTestParams(), nil)
	require.NoError(t, err)

	caps := provider.Capabilities()
	assert.True(t, caps.AdminChangePassword)
	assert.True(t, caps.ChangePassword)
	assert.True(t, caps.GroupAdministration)
	assert.True(t, caps.GroupMemberAdministration)
	assert.True(t, caps.UserAdministration)

	// Never supported by LDAP-backed directories regardless of parameters.
	assert.False(t, caps.PasswordExpiry)
	assert.False(t, caps.PasswordHistory)
	assert.False(t, caps.UserLocks)
}

func TestNewLDAPDirectoryMissingParameters(t *testing.T) {
	requiredNames := []string{
		"Host",
		"Port",
		"BindDN",
		"BindPassword",
		"UserBaseDN",
		"UserObjectClass",
		"UserUsernameAttribute",
		"UserNameAttribute",
		"GroupBaseDN",
		"GroupObjectClass",
		"GroupNameAttribute",
		"GroupMemberAttribute",
	}

	for _, name := range requiredNames {
		t.Run(name, func(t *testing.T) {
			_, err := NewLDAPDirectory(testDirectoryID, withoutParam(ldapTestParams(), name), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestNewLDAPDirectoryCapabilityOverrides(t *testing.T) {
	params := append(ldapTestParams(),
		Parameter{Name: "SupportsUserAdministration", Value: "false"},
		Parameter{Name: "SupportsGroupAdministration", Value: "false"},
	)

	provider, err := NewLDAPDirectory(testDirectoryID, params, nil)
	require.NoError(t, err)

	caps := provider.Capabilities()
	assert.False(t, caps.UserAdministration)
	assert.False(t, caps.GroupAdministration)
	assert.True(t, caps.GroupMemberAdministration)
}

func TestLDAPCapabilityGating(t *testing.T) {
	params := append(ldapTestParams(),
		Parameter{Name: "SupportsUserAdministration", Value: "false"},
		Parameter{Name: "SupportsGroupMemberAdministration", Value: "false"},
		Parameter{Name: "SupportsChangePassword", Value: "false"},
	)

	provider, err := NewLDAPDirectory(testDirectoryID, params, nil)
	require.NoError(t, err)

	// Gated operations fail before any connection is attempted.
	var unavailable *UnavailableError

	err = provider.DeleteUser("alice")
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, testDirectoryID, unavailable.DirectoryID)

	err = provider.AddUserToGroup("admins", "alice")
	assert.ErrorAs(t, err, &unavailable)

	err = provider.ChangePassword("alice", "old", "new")
	assert.ErrorAs(t, err, &unavailable)
}

func TestMemberDNsFiltersSelfMembership(t *testing.T) {
	provider, err := NewLDAPDirectory(testDirectoryID, ldapTestParams(), nil)
	require.NoError(t, err)

	directory, ok := provider.(*LDAPDirectory)
	require.True(t, ok)

	groupDN := "cn=editors,ou=groups,dc=example,dc=com"
	entry := ldap.NewEntry(groupDN, map[string][]string{
		"member": {
			"uid=alice,ou=people,dc=example,dc=com",
			// Groups are created with themselves as member; the DN may
			// come back with different casing.
			"CN=Editors,OU=groups,DC=example,DC=com",
			"uid=bob,ou=people,dc=example,dc=com",
		},
	})

	assert.Equal(t, []string{
		"uid=alice,ou=people,dc=example,dc=com",
		"uid=bob,ou=people,dc=example,dc=com",
	}, directory.memberDNs(entry))
}

func TestMemberDNsSelfOnlyGroupIsEmpty(t *testing.T) {
	provider, err := NewLDAPDirectory(testDirectoryID, ldapTestParams(), nil)
	require.NoError(t, err)

	directory, ok := provider.(*LDAPDirectory)
	require.True(t, ok)

	groupDN := "cn=empty,ou=groups,dc=example,dc=com"
	entry := ldap.NewEntry(groupDN, map[string][]string{
		"member": {groupDN},
	})

	assert.Empty(t, directory.memberDNs(entry))
}

func TestMemberNameFromDN(t *testing.T) {
	testCases := []struct {
		name     string
		dn       string
		expected string
	}{
		{name: "user dn", dn: "uid=alice,ou=people,dc=example,dc=com", expected: "alice"},
		{name: "cn dn", dn: "cn=Bob Smith,ou=people,dc=example,dc=com", expected: "Bob Smith"},
		{name: "escaped comma", dn: `cn=Smith\, Bob,ou=people,dc=example,dc=com`, expected: "Smith, Bob"},
		{name: "unparseable falls back to raw value", dn: "not a dn", expected: "not a dn"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, memberNameFromDN(tc.dn))
		})
	}
}

func TestMatchUserFilter(t *testing.T) {
	user := models.User{Username: "alice", Name: "Alice Martin"}

	assert.True(t, matchUserFilter(user, ""))
	assert.True(t, matchUserFilter(user, "ali"))
	assert.True(t, matchUserFilter(user, "MARTIN"))
	assert.False(t, matchUserFilter(user, "bob"))
}

func TestMatchUserAttributes(t *testing.T) {
	user := models.User{
		Username: "alice",
		Name:     "Alice Martin",
		Email:    "alice@example.com",
	}

	assert.True(t, matchUserAttributes(user, nil))
	assert.True(t, matchUserAttributes(user, []Attribute{
		{Name: "username", Value: "ALI"},
		{Name: "email", Value: "@example"},
	}))
	assert.False(t, matchUserAttributes(user, []Attribute{
		{Name: "username", Value: "ali"},
		{Name: "email", Value: "@other"},
	}))
	// Unknown attributes never match anything.
	assert.False(t, matchUserAttributes(user, []Attribute{{Name: "shoeSize", Value: "42"}}))
}

func TestSortUsers(t *testing.T) {
	users := []models.User{
		{Username: "carol", Email: "carol@example.com"},
		{Username: "Alice", Email: "alice@example.com"},
		{Username: "bob", Email: "bob@example.com"},
	}

	sortUsers(users, UserSortByUsername, SortAscending)
	assert.Equal(t, "Alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
	assert.Equal(t, "carol", users[2].Username)

	sortUsers(users, UserSortByUsername, SortDescending)
	assert.Equal(t, "carol", users[0].Username)

	sortUsers(users, UserSortByEmail, SortAscending)
	assert.Equal(t, "alice@example.com", users[0].Email)
}
