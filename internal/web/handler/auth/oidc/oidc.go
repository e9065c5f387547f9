// Package oidc provides single sign-on via an OpenID Connect identity
// provider. Authenticated identities are provisioned into the configured
// internal directory and their group memberships are synchronized from the
// ID token on every login.
package oidc

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/directory"
	"github.com/guardpost/guardpost/internal/web/handler"
	"github.com/guardpost/guardpost/internal/web/session"
)

const (
	// Path is the path that starts the OIDC login flow.
	Path = "/auth/oidc"
	// CallbackPath is the path the identity provider redirects back to.
	CallbackPath = Path + "/callback"
)

// Service is the OIDC handler service.
type Service struct {
	cfg      *config.Config
	registry *directory.Registry
	provider *provider
	states   *stateStore
}

// Handler is the OIDC handler.
var Handler = Service{}

// Init initializes the OIDC handler. When OIDC is disabled the routes are
// not registered.
func (s *Service) Init(app *fiber.App, cfg *config.Config, registry *directory.Registry) error {
	if app == nil || cfg == nil || registry == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.registry = registry

	if !cfg.Auth.OIDC.Enabled {
		return nil
	}

	s.provider = newProvider(cfg.Auth.OIDC)
	s.states = newStateStore()

	app.Get(Path, s.Begin)
	app.Get(CallbackPath, s.Callback)

	return nil
}

// Begin redirects the browser to the identity provider's authorization
// endpoint with a one-time state token.
func (s *Service) Begin(c *fiber.Ctx) error {
	if err := s.provider.init(c.Context()); err != nil {
		log.Error().Err(err).Msg("oidc discovery failed")

		return fiber.ErrServiceUnavailable
	}

	state, err := GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state token")

		return fiber.ErrInternalServerError
	}

	s.states.Put(state)

	return c.Redirect(s.provider.authURL(state), fiber.StatusFound)
}

// Callback completes the OIDC flow, provisions the user, and starts a
// session.
func (s *Service) Callback(c *fiber.Ctx) error {
	if err := s.provider.init(c.Context()); err != nil {
		log.Error().Err(err).Msg("oidc discovery failed")

		return fiber.ErrServiceUnavailable
	}

	if !s.states.Consume(c.Query("state")) {
		return handler.BadRequest(c, "invalid_state", "invalid or expired state token")
	}

	claims, err := s.provider.exchange(c.Context(), c.Query("code"))
	if err != nil {
		log.Warn().Err(err).Msg("oidc token exchange failed")

		return fiber.ErrUnauthorized
	}

	if claims.Email == "" {
		return handler.BadRequest(c, "invalid_token", "ID token carries no email claim")
	}

	dir, err := s.registry.DirectoryByName(s.cfg.Seed.DirectoryName)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	dirProvider, err := s.registry.Provider(dir.ID)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	user, err := s.provisionUser(dirProvider, claims)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err = s.syncGroups(dirProvider, user.Username, claims.Groups); err != nil {
		return handler.DirectoryError(c, err)
	}

	functionCodes, err := dirProvider.GetFunctionCodesForUser(user.Username)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")

		return fiber.ErrInternalServerError
	}

	userSession := &session.Data{
		User:          *user,
		DirectoryID:   dir.ID,
		TenantID:      dir.TenantID,
		FunctionCodes: functionCodes,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return fiber.ErrInternalServerError
	}

	cookieSettings := &fiber.Cookie{
		Name:     handler.SessionCookie,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	return c.Redirect(handler.RootPath, fiber.StatusFound)
}

// provisionUser finds or creates the directory user for the given claims,
// refreshing the profile attributes on every login. The email claim is the
// username.
func (s *Service) provisionUser(p directory.Provider, claims *Claims) (*models.User, error) {
	name := claims.Name
	if name == "" {
		name = strings.TrimSpace(claims.GivenName + " " + claims.FamilyName)
	}

	user, err := p.GetUser(claims.Email)

	switch {
	case errors.Is(err, directory.ErrUserNotFound):
		created := models.User{
			Username:      claims.Email,
			Name:          name,
			PreferredName: claims.GivenName,
			Email:         claims.Email,
		}

		// No password: a generated one keeps credential login closed for
		// identities owned by the identity provider.
		if err = p.CreateUser(&created, false, false); err != nil {
			return nil, err
		}

		log.Info().Str("username", created.Username).Msg("provisioned OIDC user")

		return &created, nil
	case err != nil:
		return nil, err
	default:
		user.Name = name
		user.PreferredName = claims.GivenName
		user.Email = claims.Email

		if err = p.UpdateUser(user, false, false); err != nil {
			return nil, err
		}

		return user, nil
	}
}

// syncGroups reconciles the user's directory group memberships with the
// groups asserted by the ID token. Missing groups are created on the fly.
func (s *Service) syncGroups(p directory.Provider, username string, desired []string) error {
	current, err := p.GetGroupNamesForUser(username)
	if err != nil {
		return err
	}

	currentSet := make(map[string]string, len(current))
	for _, name := range current {
		currentSet[strings.ToLower(name)] = name
	}

	desiredSet := make(map[string]struct{}, len(desired))

	for _, name := range desired {
		desiredSet[strings.ToLower(name)] = struct{}{}

		if _, ok := currentSet[strings.ToLower(name)]; ok {
			continue
		}

		err = p.AddUserToGroup(name, username)
		if errors.Is(err, directory.ErrGroupNotFound) {
			if err = p.CreateGroup(&models.Group{Name: name}); err != nil {
				return err
			}

			err = p.AddUserToGroup(name, username)
		}

		if err != nil {
			return err
		}
	}

	for lower, name := range currentSet {
		if _, ok := desiredSet[lower]; ok {
			continue
		}

		if err = p.RemoveUserFromGroup(name, username); err != nil {
			return err
		}
	}

	return nil
}
