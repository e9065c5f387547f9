// Package main provides the entry point for the Guardpost identity and
// authorization service. It starts a web server using the Fiber framework
// that exposes user, group, and role management across pluggable user
// directories through a REST API. The service uses gorm for data
// persistence and supports database-backed and LDAP-backed directories.
package main
