package config

import (
	"time"

	"github.com/guardpost/guardpost/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
	Seed      Seed
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath           bool    // use clean path middleware to allow multi slash requests
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Session             Session // session settings
}

// Auth groups the authentication settings.
type Auth struct {
	OIDC OIDC
}

// OIDC holds OpenID Connect settings for single sign-on.
type OIDC struct {
	Enabled      bool
	ProviderURL  string `validate:"omitempty,url"`
	ClientID     string
	ClientSecret string
	RedirectURL  string `validate:"omitempty,url"`
	Scopes       []string
	GroupsClaim  string
}

// Seed controls the data created on an empty database: the default tenant,
// its internal user directory and the initial administrator account.
type Seed struct {
	TenantName    string
	DirectoryName string
	AdminUsername string
	AdminPassword string
}
