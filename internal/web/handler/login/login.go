// Package login provides the credential login endpoint.
package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/directory"
	"github.com/guardpost/guardpost/internal/web/handler"
	"github.com/guardpost/guardpost/internal/web/session"
)

const (
	// Path is the path to the login endpoint.
	Path = "/login"
)

// Request is the login request body.
type Request struct {
	DirectoryID string `json:"directoryId"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// Response is the successful login response body.
type Response struct {
	UserID        string   `json:"userId"`
	Username      string   `json:"username"`
	Name          string   `json:"name"`
	DirectoryID   string   `json:"directoryId"`
	TenantID      string   `json:"tenantId"`
	FunctionCodes []string `json:"functionCodes"`
}

// Service is the login handler service.
type Service struct {
	cfg      *config.Config
	registry *directory.Registry
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, registry *directory.Registry) error {
	if app == nil || cfg == nil || registry == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.registry = registry

	app.Post(Path, s.Post)

	return nil
}

// Post handles the login request.
func (s *Service) Post(c *fiber.Ctx) error {
	var req Request

	if err := c.BodyParser(&req); err != nil {
		return handler.BadRequest(c, "invalid_request", "malformed login request")
	}

	if req.DirectoryID == "" || req.Username == "" {
		return handler.BadRequest(c, "invalid_request", "directoryId and username are required")
	}

	provider, err := s.registry.Provider(req.DirectoryID)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	if err := provider.Authenticate(req.Username, req.Password); err != nil {
		// A missing user reads the same as a bad password on this path.
		if errors.Is(err, directory.ErrUserNotFound) {
			err = directory.ErrAuthenticationFailed
		}

		log.Info().
			Str("directory", req.DirectoryID).
			Str("username", req.Username).
			Err(err).
			Msg("login rejected")

		return handler.DirectoryError(c, err)
	}

	user, err := provider.GetUser(req.Username)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	functionCodes, err := provider.GetFunctionCodesForUser(req.Username)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	dir, err := s.registry.Directory(req.DirectoryID)
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
		DirectoryID:   req.DirectoryID,
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

	return c.JSON(Response{
		UserID:        user.ID,
		Username:      user.Username,
		Name:          user.Name,
		DirectoryID:   req.DirectoryID,
		TenantID:      dir.TenantID,
		FunctionCodes: functionCodes,
	})
}
