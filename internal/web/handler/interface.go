package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/directory"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, registry *directory.Registry) error
}
