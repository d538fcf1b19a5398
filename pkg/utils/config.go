// Package utils loads poetryhub configuration: an optional TOML file, then
// a .env file, then POETRYHUB_* environment variables, later sources winning.
package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"poetryhub/pkg/database"
)

type ServerConfig struct {
	HTTPAddr string `toml:"http_addr"`
	SyncAddr string `toml:"sync_addr"`
	GRPCAddr string `toml:"grpc_addr"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	JWTIssuer string `toml:"jwt_issuer"`
	// JWTTTL is a Go duration ("36h") or a whole number of hours.
	JWTTTL string `toml:"jwt_ttl"`

	JWTDuration time.Duration `toml:"-"`
}

type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type RemoteConfig struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type BackendConfig struct {
	Default  string `toml:"default"`
	PrefsDir string `toml:"prefs_dir"`
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Auth    AuthConfig    `toml:"auth"`
	Store   StoreConfig   `toml:"store"`
	Remote  RemoteConfig  `toml:"remote"`
	Backend BackendConfig `toml:"backend"`
}

const DefaultJWTSecret = "dev-secret-change-me"

func Default() Config {
	db := database.DefaultConfig()
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Server: ServerConfig{HTTPAddr: ":8080", SyncAddr: ":7070", GRPCAddr: ":9090"},
		Auth: AuthConfig{
			JWTSecret:   DefaultJWTSecret,
			JWTIssuer:   "poetryhub",
			JWTTTL:      "24h",
			JWTDuration: 24 * time.Hour,
		},
		Store:   StoreConfig{Driver: db.Driver, DSN: db.DSN},
		Remote:  RemoteConfig{URL: "http://localhost:8080", TimeoutSeconds: 30},
		Backend: BackendConfig{Default: "remote", PrefsDir: filepath.Join(home, ".poetryhub")},
	}
}

// Load reads path (or $POETRYHUB_CONFIG when path is empty). A missing file
// leaves the defaults in place.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("POETRYHUB_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	d, err := ParseTTL(cfg.Auth.JWTTTL)
	if err != nil {
		return cfg, fmt.Errorf("auth.jwt_ttl: %w", err)
	}
	cfg.Auth.JWTDuration = d
	if cfg.Remote.TimeoutSeconds <= 0 {
		cfg.Remote.TimeoutSeconds = 30
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.HTTPAddr, "POETRYHUB_HTTP_ADDR")
	set(&cfg.Server.SyncAddr, "POETRYHUB_SYNC_ADDR")
	set(&cfg.Server.GRPCAddr, "POETRYHUB_GRPC_ADDR")
	set(&cfg.Auth.JWTSecret, "POETRYHUB_JWT_SECRET")
	set(&cfg.Auth.JWTIssuer, "POETRYHUB_JWT_ISSUER")
	set(&cfg.Auth.JWTTTL, "POETRYHUB_JWT_TTL")
	set(&cfg.Store.DSN, "POETRYHUB_DATABASE_URL")
	if strings.HasPrefix(cfg.Store.DSN, "postgres://") || strings.HasPrefix(cfg.Store.DSN, "postgresql://") {
		cfg.Store.Driver = database.DriverPostgres
	}
	set(&cfg.Store.Driver, "POETRYHUB_DB_DRIVER")
	set(&cfg.Remote.URL, "POETRYHUB_REMOTE_URL")
	set(&cfg.Remote.Token, "POETRYHUB_REMOTE_TOKEN")
	set(&cfg.Backend.Default, "POETRYHUB_BACKEND")
	set(&cfg.Backend.PrefsDir, "POETRYHUB_PREFS_DIR")
}

// ParseTTL accepts a duration string or a whole number of hours.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 24 * time.Hour, nil
	}
	if h, err := strconv.Atoi(s); err == nil {
		if h <= 0 {
			return 0, fmt.Errorf("ttl must be positive, got %d hours", h)
		}
		return time.Duration(h) * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("ttl must be positive, got %s", d)
	}
	return d, nil
}

// Database returns the store connection settings.
func (c Config) Database() database.Config {
	return database.Config{Driver: c.Store.Driver, DSN: c.Store.DSN}
}

// StoreReady reports whether the store has real connection settings.
func (c Config) StoreReady() bool {
	return c.Database().Ready()
}

func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}
