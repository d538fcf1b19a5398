package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// PlaceholderDSN is what the sample configuration ships with. A store whose
// DSN is still the placeholder is never considered ready.
const PlaceholderDSN = "YOUR_DATABASE_URL"

type Config struct {
	Driver string
	DSN    string
}

func DefaultConfig() Config {
	if dsn := os.Getenv("POETRYHUB_DATABASE_URL"); dsn != "" {
		driver := os.Getenv("POETRYHUB_DB_DRIVER")
		if driver == "" {
			driver = DriverPostgres
		}
		return Config{Driver: driver, DSN: dsn}
	}

	// local default: ~/.poetryhub/store.db
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(home, ".poetryhub", "store.db"),
	}
}

// Ready reports whether cfg names a usable store.
func (cfg Config) Ready() bool {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return false
	}
	dsn := strings.TrimSpace(cfg.DSN)
	return dsn != "" && dsn != PlaceholderDSN
}

func EnsureDataDir(cfg Config) error {
	if cfg.Driver != DriverSQLite || strings.HasPrefix(cfg.DSN, "file:") || cfg.DSN == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(cfg.DSN), 0o755)
}

func Open(cfg Config) (*sql.DB, error) {
	if !cfg.Ready() {
		return nil, fmt.Errorf("store is not configured (driver %q)", cfg.Driver)
	}
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma foreign_keys: %w", err)
		}
		if !strings.Contains(cfg.DSN, "mode=memory") && cfg.DSN != ":memory:" {
			if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("pragma journal_mode: %w", err)
			}
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return db, nil
}

// NewBun wraps db with the query builder dialect matching driver.
func NewBun(db *sql.DB, driver string) (*bun.DB, error) {
	switch driver {
	case DriverSQLite:
		return bun.NewDB(db, sqlitedialect.New()), nil
	case DriverPostgres:
		return bun.NewDB(db, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// OpenBun opens, migrates and wraps the store in one step.
func OpenBun(cfg Config) (*bun.DB, error) {
	sqldb, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(sqldb, cfg.Driver); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	db, err := NewBun(sqldb, cfg.Driver)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return db, nil
}
