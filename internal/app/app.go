// Package app wires configuration into a ready Dispatcher. Every binary
// builds its backends through here.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/uptrace/bun"

	"poetryhub/internal/auth"
	"poetryhub/internal/backend"
	"poetryhub/internal/dispatch"
	"poetryhub/internal/prefs"
	"poetryhub/internal/remote"
	"poetryhub/internal/store"
	"poetryhub/pkg/database"
	"poetryhub/pkg/utils"
)

type App struct {
	Config     utils.Config
	Tokens     auth.TokenService
	Dispatcher *dispatch.Dispatcher
	Remote     *remote.Client
	Store      *store.Adapter // nil when the store is not configured or failed to open
	Prefs      prefs.Store

	db *bun.DB
}

type Option func(*options)

type options struct {
	prefs  prefs.Store
	client *http.Client
}

// WithPrefs replaces the file-backed preference store.
func WithPrefs(p prefs.Store) Option {
	return func(o *options) { o.prefs = p }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.client = hc }
}

func Tokens(cfg utils.Config) auth.TokenService {
	return auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
}

// Build opens the configured backends. The remote adapter always exists; the
// store adapter only when its settings are complete and the database opens.
func Build(cfg utils.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	log := slog.Default().With("component", "app")

	a := &App{Config: cfg, Tokens: Tokens(cfg), Prefs: o.prefs}
	if a.Prefs == nil {
		a.Prefs = prefs.NewFile(cfg.Backend.PrefsDir)
	}

	hc := o.client
	if hc == nil {
		hc = &http.Client{Timeout: cfg.RemoteTimeout()}
	}
	rc, err := remote.New(cfg.Remote.URL, remote.WithHTTPClient(hc), remote.WithToken(cfg.Remote.Token))
	if err != nil {
		return nil, err
	}
	a.Remote = rc

	adapters := map[backend.ID]backend.Service{backend.Remote: rc}
	storeReady := cfg.StoreReady()
	if storeReady {
		dbCfg := cfg.Database()
		if err := database.EnsureDataDir(dbCfg); err != nil {
			log.Warn("store data dir unavailable", "error", err)
		}
		db, err := database.OpenBun(dbCfg)
		if err != nil {
			log.Warn("store unavailable, remote only", "driver", dbCfg.Driver, "error", err)
			storeReady = false
		} else {
			a.db = db
			a.Store = store.New(db, a.Tokens)
			adapters[backend.Store] = a.Store
		}
	}

	var initial backend.ID
	if cfg.Backend.Default != "" {
		id, err := backend.ParseID(cfg.Backend.Default)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("backend.default: %w", err)
		}
		initial = id
	}

	d, err := dispatch.New(dispatch.Config{
		Adapters:   adapters,
		Initial:    initial,
		StoreReady: storeReady,
		Prefs:      a.Prefs,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Dispatcher = d
	log.Info("backends ready", "active", d.Current(), "store", storeReady, "remote", rc.BaseURL())
	return a, nil
}

// DB is the store's database, or nil.
func (a *App) DB() *bun.DB { return a.db }

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
