// Package dispatch routes canonical operations to the selected backend.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"poetryhub/internal/backend"
	"poetryhub/internal/prefs"
	"poetryhub/pkg/models"
)

// Config is everything the Dispatcher needs at construction. Initial is the
// configured default; a valid persisted preference overrides it.
type Config struct {
	Adapters   map[backend.ID]backend.Service
	Initial    backend.ID
	StoreReady bool
	Prefs      prefs.Store
	Logger     *slog.Logger
}

// Switch describes one change of the active backend.
type Switch struct {
	Previous   backend.ID
	Current    backend.ID
	Generation uint64
}

// Dispatcher holds the active backend selection. Use is the only way to
// change it. Every backend.Service call is forwarded to the adapter that was
// selected when the call started.
type Dispatcher struct {
	adapters   map[backend.ID]backend.Service
	storeReady bool
	prefs      prefs.Store
	log        *slog.Logger

	// switchMu orders Use calls; mu guards the fields below it.
	switchMu  sync.Mutex
	mu        sync.RWMutex
	current   backend.ID
	gen       uint64
	observers []func(Switch)
}

var _ backend.Service = (*Dispatcher)(nil)

func New(cfg Config) (*Dispatcher, error) {
	d := &Dispatcher{
		adapters:   make(map[backend.ID]backend.Service, len(cfg.Adapters)),
		storeReady: cfg.StoreReady,
		prefs:      cfg.Prefs,
		log:        cfg.Logger,
	}
	if d.log == nil {
		d.log = slog.Default().With("component", "dispatch")
	}
	for id, svc := range cfg.Adapters {
		if svc != nil {
			d.adapters[id] = svc
		}
	}

	start := backend.Remote
	if cfg.Initial != "" && d.Ready(cfg.Initial) {
		start = cfg.Initial
	}
	if d.prefs != nil {
		id, ok, err := d.prefs.Load()
		switch {
		case err != nil:
			d.log.Warn("ignoring stored backend preference", "error", err)
		case ok && d.Ready(id):
			start = id
		case ok:
			d.log.Warn("stored backend is not ready, using default", "backend", id, "default", start)
		}
	}
	if _, ok := d.adapters[start]; !ok {
		return nil, fmt.Errorf("dispatch: no adapter for backend %q", start)
	}
	d.current = start
	return d, nil
}

// ID reports the active backend.
func (d *Dispatcher) ID() backend.ID { return d.Current() }

func (d *Dispatcher) Current() backend.ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Generation increases on every successful Use.
func (d *Dispatcher) Generation() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.gen
}

// Ready reports whether id may be selected. The store also needs its
// connection settings.
func (d *Dispatcher) Ready(id backend.ID) bool {
	if _, ok := d.adapters[id]; !ok {
		return false
	}
	if id == backend.Store {
		return d.storeReady
	}
	return true
}

// Use selects id, persists the choice and notifies observers. Selecting the
// already active backend is a no-op that still persists. Concurrent calls are
// serialized so the persisted choice always matches the active backend.
func (d *Dispatcher) Use(ctx context.Context, id backend.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !id.Valid() {
		return backend.Errorf(backend.KindValidationFailed, d.Current(), "use backend", "unknown backend %q", id)
	}
	if !d.Ready(id) {
		return backend.Errorf(backend.KindValidationFailed, d.Current(), "use backend", "backend %s is not configured", id)
	}

	d.switchMu.Lock()
	if d.prefs != nil {
		if err := d.prefs.Save(id); err != nil {
			d.log.Warn("failed to persist backend choice", "backend", id, "error", err)
		}
	}
	d.mu.Lock()
	prev := d.current
	if prev == id {
		d.mu.Unlock()
		d.switchMu.Unlock()
		return nil
	}
	d.current = id
	d.gen++
	sw := Switch{Previous: prev, Current: id, Generation: d.gen}
	observers := slices.Clone(d.observers)
	d.mu.Unlock()
	d.switchMu.Unlock()

	d.log.Info("backend switched", "from", prev, "to", id, "generation", sw.Generation)
	for _, fn := range observers {
		fn(sw)
	}
	return nil
}

// Observe registers fn to run after every switch.
func (d *Dispatcher) Observe(fn func(Switch)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, fn)
}

// Stale reports whether a result obtained at generation gen came from a
// backend that has since been replaced.
func (d *Dispatcher) Stale(gen uint64) bool {
	return d.Generation() != gen
}

func (d *Dispatcher) active() backend.Service {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.adapters[d.current]
}

func (d *Dispatcher) ListPoems(ctx context.Context) ([]models.Poem, error) {
	return d.active().ListPoems(ctx)
}

func (d *Dispatcher) GetPoem(ctx context.Context, id string) (models.Poem, error) {
	return d.active().GetPoem(ctx, id)
}

func (d *Dispatcher) CreatePoem(ctx context.Context, in models.PoemInput) (models.Poem, error) {
	return d.active().CreatePoem(ctx, in)
}

func (d *Dispatcher) UpdatePoem(ctx context.Context, id string, in models.PoemInput) (models.Poem, error) {
	return d.active().UpdatePoem(ctx, id, in)
}

func (d *Dispatcher) DeletePoem(ctx context.Context, id string) error {
	return d.active().DeletePoem(ctx, id)
}

func (d *Dispatcher) LikePoem(ctx context.Context, id string) (int, error) {
	return d.active().LikePoem(ctx, id)
}

func (d *Dispatcher) AddComment(ctx context.Context, poemID string, in models.CommentInput) (models.Comment, error) {
	return d.active().AddComment(ctx, poemID, in)
}

func (d *Dispatcher) DeleteComment(ctx context.Context, poemID, commentID string) error {
	return d.active().DeleteComment(ctx, poemID, commentID)
}

func (d *Dispatcher) ListTranslations(ctx context.Context) ([]models.TranslationSummary, error) {
	return d.active().ListTranslations(ctx)
}

func (d *Dispatcher) GetTranslation(ctx context.Context, id string) (models.Translation, error) {
	return d.active().GetTranslation(ctx, id)
}

func (d *Dispatcher) CreateTranslation(ctx context.Context, in models.TranslationInput) (models.TranslationSummary, error) {
	return d.active().CreateTranslation(ctx, in)
}

func (d *Dispatcher) UpdateTranslation(ctx context.Context, id string, in models.TranslationInput) (models.TranslationSummary, error) {
	return d.active().UpdateTranslation(ctx, id, in)
}

func (d *Dispatcher) DeleteTranslation(ctx context.Context, id string) error {
	return d.active().DeleteTranslation(ctx, id)
}

func (d *Dispatcher) ListUsers(ctx context.Context) ([]models.User, error) {
	return d.active().ListUsers(ctx)
}

func (d *Dispatcher) DeleteUser(ctx context.Context, id string) error {
	return d.active().DeleteUser(ctx, id)
}

func (d *Dispatcher) SetAdmin(ctx context.Context, id string, admin bool) error {
	return d.active().SetAdmin(ctx, id, admin)
}

func (d *Dispatcher) SignIn(ctx context.Context, c models.Credentials) (models.Session, error) {
	return d.active().SignIn(ctx, c)
}

func (d *Dispatcher) SignUp(ctx context.Context, in models.SignUpInput) (models.User, error) {
	return d.active().SignUp(ctx, in)
}
