// Package daemon assembles the running service: database, migrations,
// initial data, session storage, and the web service.
package daemon

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/storage"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guardpost/guardpost/internal/config"
	"github.com/guardpost/guardpost/internal/db/dsn"
	"github.com/guardpost/guardpost/internal/db/models"
	"github.com/guardpost/guardpost/internal/logger/adapter/stdlogger"
	"github.com/guardpost/guardpost/internal/web"
	"github.com/guardpost/guardpost/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// WaitShutdown blocks until the web service has shut down gracefully.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	var dbDriver gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EnginePostgres:
		dbDriver = gormpostgres.Open(dsn.Create(cfg))
	case config.EngineSQLite:
		dbDriver = sqlite.Open(dsn.Create(cfg))
	default:
		dbDriver = gormmysql.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dbDriver, &gorm.Config{
		Logger: gormlogger.New(stdlogger.New(), gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond, //nolint:mnd
			LogLevel:      gormlogger.Warn,
		}),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.Tenant{},
		&models.UserDirectory{},
		&models.User{},
		&models.PasswordHistory{},
		&models.Group{},
		&models.GroupUser{},
		&models.Function{},
		&models.Role{},
		&models.RoleFunction{},
		&models.GroupRole{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	if err = seed(cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to seed database")
	}

	// Initialize fiber session store
	session.Init(sessionStorage(cfg))

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db),
	}
}

// sessionStorage selects the session backend matching the database engine.
// SQLite deployments run single-node, so fiber's in-process memory store
// is enough there.
func sessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.GormEngine {
	case config.EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	case config.EngineSQLite:
		return nil
	default:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	}
}
