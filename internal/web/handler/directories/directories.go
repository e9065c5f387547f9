// Package directories provides the user directory listing and capability
// endpoints.
package directories

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/directory"
	"github.com/guardpost/guardpost/internal/web/handler"
	"github.com/guardpost/guardpost/internal/web/middleware/auth"
)

// Path is the base path for directory routes.
const Path = handler.APIPath + "/directories"

// Directory is the JSON representation of a configured user directory.
// Parameters are deliberately omitted: they contain credentials.
type Directory struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Type     string `json:"type"`
	Name     string `json:"name"`
}

// Service is the directories handler service.
type Service struct {
	cfg      *config.Config
	registry *directory.Registry
}

// Handler is the directories handler.
var Handler = Service{}

// Init initializes the directories handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, registry *directory.Registry) error {
	if app == nil || cfg == nil || registry == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.registry = registry

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.List)
		router.Get("/:directoryID", s.Get)
		router.Get("/:directoryID/capabilities", s.Capabilities)
	})

	return nil
}

func toDirectory(dir models.UserDirectory) Directory {
	return Directory{
		ID:       dir.ID,
		TenantID: dir.TenantID,
		Type:     dir.Type,
		Name:     dir.Name,
	}
}

// List returns the directories of the caller's tenant.
func (s *Service) List(c *fiber.Ctx) error {
	sess := auth.Current(c)
	if sess == nil {
		return fiber.ErrUnauthorized
	}

	dirs, err := s.registry.DirectoriesForTenant(sess.TenantID)
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	out := make([]Directory, len(dirs))
	for i, dir := range dirs {
		out[i] = toDirectory(dir)
	}

	return c.JSON(out)
}

// Get returns a single directory.
func (s *Service) Get(c *fiber.Ctx) error {
	dir, err := s.registry.Directory(c.Params("directoryID"))
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(toDirectory(*dir))
}

// Capabilities returns the capability descriptor of a directory, so
// clients can hide administrative functionality the directory does not
// support.
func (s *Service) Capabilities(c *fiber.Ctx) error {
	provider, err := s.registry.Provider(c.Params("directoryID"))
	if err != nil {
		return handler.DirectoryError(c, err)
	}

	return c.JSON(provider.Capabilities())
}
