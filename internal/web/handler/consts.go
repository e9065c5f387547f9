// Package handler holds the shared plumbing for the web API handlers.
package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// RouterRootPath is the root path within a route group.
	RouterRootPath = "/"

	// APIPath is the prefix for the JSON API routes.
	APIPath = "/api"

	// SessionCookie is the name of the session cookie.
	SessionCookie = "session"

	// ErrNilACDFatalLogMsg is used if app or cfg or registry var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or registry is nil"
)
