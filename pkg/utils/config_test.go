package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"poetryhub/pkg/database"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"POETRYHUB_CONFIG", "POETRYHUB_HTTP_ADDR", "POETRYHUB_SYNC_ADDR", "POETRYHUB_GRPC_ADDR",
		"POETRYHUB_JWT_SECRET", "POETRYHUB_JWT_ISSUER", "POETRYHUB_JWT_TTL",
		"POETRYHUB_DB_DRIVER", "POETRYHUB_DATABASE_URL", "POETRYHUB_REMOTE_URL",
		"POETRYHUB_REMOTE_TOKEN", "POETRYHUB_BACKEND", "POETRYHUB_PREFS_DIR",
	} {
		t.Setenv(k, "")
	}
	// keep godotenv away from any .env in the package dir
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" || cfg.Auth.JWTSecret != DefaultJWTSecret || cfg.Auth.JWTIssuer != "poetryhub" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Auth.JWTDuration != 24*time.Hour {
		t.Errorf("JWTDuration = %v", cfg.Auth.JWTDuration)
	}
	if cfg.Store.Driver != database.DriverSQLite || !cfg.StoreReady() {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Backend.Default != "remote" || cfg.RemoteTimeout() != 30*time.Second {
		t.Errorf("backend = %+v, timeout = %v", cfg.Backend, cfg.RemoteTimeout())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "poetryhub.toml")
	body := `
[server]
http_addr = ":9000"

[auth]
jwt_secret = "from-file"
jwt_ttl = "2"

[store]
driver = "none"
dsn = ""

[remote]
url = "https://poetry.example"

[backend]
default = "store"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POETRYHUB_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != ":9000" || cfg.Server.GRPCAddr != ":9090" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, want env to win", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.JWTDuration != 2*time.Hour {
		t.Errorf("JWTDuration = %v", cfg.Auth.JWTDuration)
	}
	if cfg.StoreReady() {
		t.Error("StoreReady() = true for an unconfigured store")
	}
	if cfg.Remote.URL != "https://poetry.example" || cfg.Backend.Default != "store" {
		t.Errorf("remote = %+v, backend = %+v", cfg.Remote, cfg.Backend)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("POETRYHUB_REMOTE_TOKEN")
	t.Cleanup(func() { os.Unsetenv("POETRYHUB_REMOTE_TOKEN") })

	if err := os.WriteFile(".env", []byte("POETRYHUB_REMOTE_TOKEN=abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.Token != "abc" {
		t.Errorf("Token = %q, want value from .env", cfg.Remote.Token)
	}
}

func TestLoadPostgresURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("POETRYHUB_DATABASE_URL", "postgres://u:p@localhost/poetry")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != database.DriverPostgres {
		t.Errorf("Driver = %q", cfg.Store.Driver)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[server\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load(malformed) error = nil")
	}

	t.Setenv("POETRYHUB_JWT_TTL", "soon")
	if _, err := Load(""); err == nil {
		t.Error("Load(bad ttl) error = nil")
	}
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 24 * time.Hour, false},
		{"12", 12 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"0", 0, true},
		{"-1h", 0, true},
		{"later", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTTL(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTTL(%q) = %v, %v", tt.in, got, err)
		}
	}
}
