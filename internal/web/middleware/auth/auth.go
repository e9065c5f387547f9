// Package auth provides the session authentication middleware for the API.
package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/guardpost/guardpost/internal/web/handler"
	"github.com/guardpost/guardpost/internal/web/handler/login"
	"github.com/guardpost/guardpost/internal/web/session"
)

// SessionLocal is the fiber.Locals key holding the session data of the
// authenticated user.
const SessionLocal = "Session"

// openPaths can be reached without a session.
var openPaths = []string{
	login.Path,
	"/logout",
	"/auth/oidc",
	"/healthz",
	"/metrics",
}

// Middleware is a Fiber middleware that rejects unauthenticated API
// requests with a JSON 401.
func Middleware(c *fiber.Ctx) error {
	originalURL := strings.ToLower(c.OriginalURL())

	for _, p := range openPaths {
		if strings.HasPrefix(originalURL, p) {
			return c.Next()
		}
	}

	sessionID := c.Cookies(handler.SessionCookie)
	if sessionID == "" {
		return unauthorized(c)
	}

	sessData := new(session.Data)
	if err := sessData.Read(sessionID); err != nil {
		return unauthorized(c)
	}

	// LDAP users carry no local ID, so the username is the field every
	// directory type guarantees.
	if sessData.User.Username == "" {
		return unauthorized(c)
	}

	c.Locals(SessionLocal, sessData)

	return c.Next()
}

// Current returns the session data stored by the middleware, or nil when
// the request is unauthenticated.
func Current(c *fiber.Ctx) *session.Data {
	data, ok := c.Locals(SessionLocal).(*session.Data)
	if !ok {
		return nil
	}

	return data
}

// RequireFunction returns a middleware enforcing that the session carries
// the given function code.
func RequireFunction(code string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data := Current(c)
		if data == nil {
			return unauthorized(c)
		}

		if !data.HasFunction(code) {
			return c.Status(fiber.StatusForbidden).JSON(handler.ErrorResponse{
				Code:    "forbidden",
				Message: "missing required function " + code,
			})
		}

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(handler.ErrorResponse{
		Code:    "unauthenticated",
		Message: "authentication required",
	})
}
