package config

const (
	// EngineMySQL selects the MySQL/MariaDB database driver.
	EngineMySQL = "mysql"
	// EnginePostgres selects the PostgreSQL database driver.
	EnginePostgres = "postgres"
	// EngineSQLite selects the embedded SQLite database driver.
	EngineSQLite = "sqlite"
)

// DB holds the database configuration settings.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string `validate:"omitempty,oneof=mysql postgres sqlite"`
}
