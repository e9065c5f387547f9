// Package directory provides pluggable user directory providers for
// multi-tenant identity and authorization.
//
// A directory holds users and groups for a tenant and exposes them through
// the Provider interface: authentication, password lifecycle, user and
// group administration, group membership and role association. Two
// implementations exist:
//
//   - InternalDirectory stores users and groups in the relational database
//     with Argon2id password hashing, failed-attempt lockout, password
//     history and password expiry.
//   - LDAPDirectory delegates users and groups to an external LDAP server
//     and keeps only group-to-role mappings locally.
//
// # Providers and the Registry
//
// Directories are configured as rows in the user_directories table, each
// carrying a type and a JSON parameter blob. The Registry materializes
// providers on demand from those rows and caches them per directory ID:
//
//	registry := directory.NewRegistry(db)
//	provider, err := registry.Provider(directoryID)
//	err = provider.Authenticate(username, password)
//
// # Capabilities
//
// Not every directory supports every operation. Callers inspect the
// Capabilities descriptor before offering administrative functionality;
// invoking an unsupported operation fails with an UnavailableError.
//
// # Error Taxonomy
//
// Domain conditions (a missing user, a duplicate group, a failed
// authentication, a locked account) are reported as sentinel errors
// declared in this package and can be matched with errors.Is. Any other
// failure, such as an unreachable LDAP server or a database fault, is
// wrapped in an UnavailableError carrying the operation and directory ID.
//
// # Roles and Functions
//
// Roles group functions (individual permissions) and are assigned to
// groups; users receive roles and functions transitively through group
// membership. Role and function definitions always live in the relational
// database, for LDAP-backed directories as well as internal ones.
package directory
