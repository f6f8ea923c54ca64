// Package daemon wires configuration, database, session storage and the web
// service into one runnable unit.
package daemon

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/storage"
	sessionmemory "github.com/gofiber/storage/memory"
	sessionmysql "github.com/gofiber/storage/mysql"
	sessionpostgres "github.com/gofiber/storage/postgres"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/config"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/dsn"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/db/models"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web"
)

const (
	// EngineMySQL selects the MySQL/MariaDB gorm driver.
	EngineMySQL = "mysql"
	// EnginePostgres selects the PostgreSQL gorm driver.
	EnginePostgres = "postgres"
	// EngineSQLite selects the pure-Go SQLite gorm driver.
	EngineSQLite = "sqlite"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(fmt.Sprintf(":%d", d.webService.Port()))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	if err = seed(cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to seed database")
		return nil
	}

	return &Daemon{
		webService: web.New(cfg, db, sessionStorage(cfg)),
	}
}

// openDatabase opens the gorm connection for the configured engine.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case EnginePostgres:
		dialector = gormpostgres.Open(dsn.Create(cfg))
	case EngineSQLite:
		dialector = sqlite.Open(cfg.DB.SQLitePath)
	case EngineMySQL, "":
		dialector = gormmysql.Open(dsn.Create(cfg))
	default:
		return nil, fmt.Errorf("unknown gorm engine: %q", cfg.DB.GormEngine)
	}

	return gorm.Open(dialector, &gorm.Config{})
}

// migrate creates or updates the schema for all models. The user/role join is
// registered first so gorm uses the richer join model carrying the grant
// metadata instead of an implicit two-column table.
func migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}); err != nil {
		return err
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.RolePermission{},
		&models.Category{},
		&models.Product{},
		&models.Customer{},
		&models.Appointment{},
		&models.Page{},
		&models.Testimonial{},
	)
}

// sessionStorage picks the fiber session storage backend matching the
// configured database engine. SQLite deployments are single-node by nature,
// so sessions live in process memory there.
func sessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.GormEngine {
	case EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	case EngineSQLite:
		return sessionmemory.New()
	default:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	}
}
