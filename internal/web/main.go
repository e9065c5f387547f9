// Package web wires the HTTP API: the fiber app, its middleware chain, and
// the handler services.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/directory"
	fiberlogger "github.com/guardpost/guardpost/internal/logger/adapter/fiber"
	"github.com/guardpost/guardpost/internal/web/handler"
	oidchandler "github.com/guardpost/guardpost/internal/web/handler/auth/oidc"
	"github.com/guardpost/guardpost/internal/web/handler/directories"
	"github.com/guardpost/guardpost/internal/web/handler/groups"
	"github.com/guardpost/guardpost/internal/web/handler/login"
	"github.com/guardpost/guardpost/internal/web/handler/logout"
	"github.com/guardpost/guardpost/internal/web/handler/users"
	"github.com/guardpost/guardpost/internal/web/middleware/auth"
)

// HealthPath is the liveness endpoint used by load balancers.
const HealthPath = "/healthz"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	registry     *directory.Registry
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so the
	// liveness endpoint returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	// access logging
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: HealthPath,
	}))

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	registry := directory.NewRegistry(db)

	service := &Service{
		cfg:      cfg,
		App:      app,
		db:       db,
		registry: registry,
	}

	service.alive.Store(true)

	app.Get(HealthPath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get(handler.RootPath, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": cfg.Title})
	})

	// session based authentication
	app.Use(auth.Middleware)

	// init handlers (they register their own routes with function checks)
	handlers := []handler.Service{
		&login.Handler,
		&logout.Handler,
		&oidchandler.Handler,
		&directories.Handler,
		&users.Handler,
		&groups.Handler,
	}

	for _, h := range handlers {
		if err := h.Init(app, cfg, registry); err != nil {
			log.Fatal().Err(err).Msg("handler initialization failed")
		}
	}

	return service
}
