package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"poetryhub/internal/backend"
	"poetryhub/internal/prefs"
	"poetryhub/pkg/models"
)

// fakeService answers every call with data naming its backend and counts calls.
type fakeService struct {
	id backend.ID

	mu    sync.Mutex
	calls map[string]int
}

func newFake(id backend.ID) *fakeService {
	return &fakeService{id: id, calls: map[string]int{}}
}

func (f *fakeService) hit(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeService) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeService) ID() backend.ID { return f.id }

func (f *fakeService) ListPoems(context.Context) ([]models.Poem, error) {
	f.hit("ListPoems")
	return []models.Poem{{ID: string(f.id) + "-1", Title: string(f.id)}}, nil
}

func (f *fakeService) GetPoem(_ context.Context, id string) (models.Poem, error) {
	f.hit("GetPoem")
	return models.Poem{}, backend.Errorf(backend.KindNotFound, f.id, "get poem", "poem %s not found", id)
}

func (f *fakeService) CreatePoem(_ context.Context, in models.PoemInput) (models.Poem, error) {
	f.hit("CreatePoem")
	return models.Poem{ID: "new", Title: in.Title}, nil
}

func (f *fakeService) UpdatePoem(_ context.Context, id string, in models.PoemInput) (models.Poem, error) {
	f.hit("UpdatePoem")
	return models.Poem{ID: id, Title: in.Title}, nil
}

func (f *fakeService) DeletePoem(context.Context, string) error {
	f.hit("DeletePoem")
	return nil
}

func (f *fakeService) LikePoem(context.Context, string) (int, error) {
	f.hit("LikePoem")
	return 1, nil
}

func (f *fakeService) AddComment(_ context.Context, poemID string, in models.CommentInput) (models.Comment, error) {
	f.hit("AddComment")
	return models.Comment{ID: "c", PoemID: poemID, Author: in.Author, Text: in.Text}, nil
}

func (f *fakeService) DeleteComment(context.Context, string, string) error {
	f.hit("DeleteComment")
	return nil
}

func (f *fakeService) ListTranslations(context.Context) ([]models.TranslationSummary, error) {
	f.hit("ListTranslations")
	return nil, nil
}

func (f *fakeService) GetTranslation(_ context.Context, id string) (models.Translation, error) {
	f.hit("GetTranslation")
	return models.Translation{ID: id}, nil
}

func (f *fakeService) CreateTranslation(_ context.Context, in models.TranslationInput) (models.TranslationSummary, error) {
	f.hit("CreateTranslation")
	return models.TranslationSummary{ID: "t", Title: in.Title}, nil
}

func (f *fakeService) UpdateTranslation(_ context.Context, id string, in models.TranslationInput) (models.TranslationSummary, error) {
	f.hit("UpdateTranslation")
	return models.TranslationSummary{ID: id, Title: in.Title}, nil
}

func (f *fakeService) DeleteTranslation(context.Context, string) error {
	f.hit("DeleteTranslation")
	return nil
}

func (f *fakeService) ListUsers(context.Context) ([]models.User, error) {
	f.hit("ListUsers")
	return nil, nil
}

func (f *fakeService) DeleteUser(context.Context, string) error {
	f.hit("DeleteUser")
	return nil
}

func (f *fakeService) SetAdmin(context.Context, string, bool) error {
	f.hit("SetAdmin")
	return nil
}

func (f *fakeService) SignIn(context.Context, models.Credentials) (models.Session, error) {
	f.hit("SignIn")
	return models.Session{}, backend.Errorf(backend.KindUnauthorized, f.id, "sign in", "invalid credentials")
}

func (f *fakeService) SignUp(_ context.Context, in models.SignUpInput) (models.User, error) {
	f.hit("SignUp")
	return models.User{ID: "u", Email: in.Email}, nil
}

type failingPrefs struct{}

func (failingPrefs) Load() (backend.ID, bool, error) { return "", false, errors.New("disk gone") }
func (failingPrefs) Save(backend.ID) error           { return errors.New("disk gone") }

// gatedPrefs blocks Save(hold) until gate is closed and records the order
// of completed saves.
type gatedPrefs struct {
	hold    backend.ID
	entered chan struct{}
	gate    chan struct{}

	mu    sync.Mutex
	saved []backend.ID
}

func (g *gatedPrefs) Load() (backend.ID, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.saved) == 0 {
		return "", false, nil
	}
	return g.saved[len(g.saved)-1], true, nil
}

func (g *gatedPrefs) Save(id backend.ID) error {
	if id == g.hold {
		close(g.entered)
		<-g.gate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved = append(g.saved, id)
	return nil
}

func newPair() (*fakeService, *fakeService, map[backend.ID]backend.Service) {
	r, s := newFake(backend.Remote), newFake(backend.Store)
	return r, s, map[backend.ID]backend.Service{backend.Remote: r, backend.Store: s}
}

func TestSwitchQueriesOnlyNewBackend(t *testing.T) {
	remote, store, adapters := newPair()
	d, err := New(Config{Adapters: adapters, Initial: backend.Remote, StoreReady: true, Prefs: &prefs.Memory{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	poems, _ := d.ListPoems(ctx)
	if len(poems) != 1 || poems[0].Title != "remote" {
		t.Fatalf("first listing = %+v", poems)
	}

	if err := d.Use(ctx, backend.Store); err != nil {
		t.Fatalf("Use(store) error = %v", err)
	}
	poems, _ = d.ListPoems(ctx)
	if len(poems) != 1 || poems[0].Title != "store" {
		t.Fatalf("listing after switch = %+v", poems)
	}
	if remote.count("ListPoems") != 1 || store.count("ListPoems") != 1 {
		t.Errorf("calls remote=%d store=%d; want 1 each", remote.count("ListPoems"), store.count("ListPoems"))
	}
}

func TestStartupSelection(t *testing.T) {
	tests := []struct {
		name       string
		initial    backend.ID
		stored     backend.ID
		storeReady bool
		want       backend.ID
	}{
		{"default remote", "", "", true, backend.Remote},
		{"configured store", backend.Store, "", true, backend.Store},
		{"configured store not ready", backend.Store, "", false, backend.Remote},
		{"stored wins over configured", backend.Remote, backend.Store, true, backend.Store},
		{"stored store not ready", backend.Remote, backend.Store, false, backend.Remote},
		{"stored remote", backend.Store, backend.Remote, true, backend.Remote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, adapters := newPair()
			p := &prefs.Memory{}
			if tt.stored != "" {
				_ = p.Save(tt.stored)
			}
			d, err := New(Config{Adapters: adapters, Initial: tt.initial, StoreReady: tt.storeReady, Prefs: p})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := d.Current(); got != tt.want {
				t.Errorf("Current() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStartupWithoutRemoteAdapter(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New with no adapters should fail")
	}
	s := newFake(backend.Store)
	d, err := New(Config{Adapters: map[backend.ID]backend.Service{backend.Store: s}, Initial: backend.Store, StoreReady: true})
	if err != nil || d.Current() != backend.Store {
		t.Fatalf("store-only dispatcher = %v, %v", d, err)
	}
}

func TestUseRejectsUnknownAndNotReady(t *testing.T) {
	_, _, adapters := newPair()
	p := &prefs.Memory{}
	d, _ := New(Config{Adapters: adapters, StoreReady: false, Prefs: p})
	ctx := context.Background()

	for _, id := range []backend.ID{"mongo", backend.Store} {
		err := d.Use(ctx, id)
		if !backend.IsKind(err, backend.KindValidationFailed) {
			t.Errorf("Use(%q) error = %v, want validation_failed", id, err)
		}
	}
	if d.Current() != backend.Remote || d.Generation() != 0 || p.Saves() != 0 {
		t.Errorf("rejected switch changed state: current=%q gen=%d saves=%d", d.Current(), d.Generation(), p.Saves())
	}
}

func TestUsePersistsAndNotifies(t *testing.T) {
	_, _, adapters := newPair()
	p := &prefs.Memory{}
	d, _ := New(Config{Adapters: adapters, StoreReady: true, Prefs: p})
	ctx := context.Background()

	var got []Switch
	d.Observe(func(s Switch) {
		// observers run outside the lock
		_ = d.Current()
		got = append(got, s)
	})

	// reads never persist
	_, _ = d.ListPoems(ctx)
	_ = d.Current()
	if p.Saves() != 0 {
		t.Fatalf("reads persisted %d times", p.Saves())
	}

	if err := d.Use(ctx, backend.Store); err != nil {
		t.Fatal(err)
	}
	if err := d.Use(ctx, backend.Store); err != nil {
		t.Fatal(err)
	}
	if err := d.Use(ctx, backend.Remote); err != nil {
		t.Fatal(err)
	}

	if id, _, _ := p.Load(); id != backend.Remote {
		t.Errorf("persisted %q, want remote", id)
	}
	if p.Saves() != 3 {
		t.Errorf("saves = %d, want 3", p.Saves())
	}
	want := []Switch{
		{Previous: backend.Remote, Current: backend.Store, Generation: 1},
		{Previous: backend.Store, Current: backend.Remote, Generation: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("observed %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("switch %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestConcurrentUseKeepsPersistedChoiceInStep(t *testing.T) {
	_, _, adapters := newPair()
	p := &gatedPrefs{hold: backend.Store, entered: make(chan struct{}), gate: make(chan struct{})}
	d, err := New(Config{Adapters: adapters, Initial: backend.Remote, StoreReady: true, Prefs: p})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := d.Use(ctx, backend.Store); err != nil {
			t.Errorf("Use(store) error = %v", err)
		}
	}()
	<-p.entered

	second := make(chan struct{})
	go func() {
		defer wg.Done()
		defer close(second)
		if err := d.Use(ctx, backend.Remote); err != nil {
			t.Errorf("Use(remote) error = %v", err)
		}
	}()
	select {
	case <-second:
		t.Fatal("Use(remote) finished while Use(store) was still persisting")
	case <-time.After(50 * time.Millisecond):
	}

	close(p.gate)
	wg.Wait()

	persisted, ok, _ := p.Load()
	if !ok || persisted != d.Current() {
		t.Errorf("persisted %q, active %q; want equal", persisted, d.Current())
	}
	if d.Current() != backend.Remote || d.Generation() != 2 {
		t.Errorf("Current() = %q gen %d, want remote gen 2", d.Current(), d.Generation())
	}
}

func TestUseSurvivesPersistFailure(t *testing.T) {
	_, _, adapters := newPair()
	d, err := New(Config{Adapters: adapters, StoreReady: true, Prefs: failingPrefs{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Use(context.Background(), backend.Store); err != nil {
		t.Fatalf("Use() error = %v", err)
	}
	if d.Current() != backend.Store {
		t.Errorf("Current() = %q", d.Current())
	}
}

func TestStaleAfterSwitch(t *testing.T) {
	_, _, adapters := newPair()
	d, _ := New(Config{Adapters: adapters, StoreReady: true})
	gen := d.Generation()
	if d.Stale(gen) {
		t.Fatal("fresh generation reported stale")
	}
	_ = d.Use(context.Background(), backend.Store)
	if !d.Stale(gen) {
		t.Error("generation before switch should be stale")
	}
}

func TestErrorsPassThroughUnchanged(t *testing.T) {
	remote, _, adapters := newPair()
	d, _ := New(Config{Adapters: adapters})
	ctx := context.Background()

	_, err := d.GetPoem(ctx, "p1")
	var be *backend.Error
	if !errors.As(err, &be) || be.Backend != backend.Remote || be.Kind != backend.KindNotFound {
		t.Fatalf("GetPoem error = %#v", err)
	}
	if !errors.Is(err, backend.ErrNotFound) {
		t.Error("errors.Is(ErrNotFound) failed through the dispatcher")
	}

	_, err = d.SignIn(ctx, models.Credentials{Email: "a@b.c", Password: "x"})
	if !backend.IsKind(err, backend.KindUnauthorized) {
		t.Errorf("SignIn error = %v", err)
	}
	if remote.count("SignIn") != 1 {
		t.Errorf("SignIn not forwarded")
	}
}

func TestForwardsEveryOperation(t *testing.T) {
	remote, store, adapters := newPair()
	d, _ := New(Config{Adapters: adapters, StoreReady: true, Initial: backend.Store})
	ctx := context.Background()

	_, _ = d.ListPoems(ctx)
	_, _ = d.GetPoem(ctx, "p")
	_, _ = d.CreatePoem(ctx, models.PoemInput{Title: "t"})
	_, _ = d.UpdatePoem(ctx, "p", models.PoemInput{Title: "t"})
	_ = d.DeletePoem(ctx, "p")
	_, _ = d.LikePoem(ctx, "p")
	_, _ = d.AddComment(ctx, "p", models.CommentInput{Author: "a", Text: "b"})
	_ = d.DeleteComment(ctx, "p", "c")
	_, _ = d.ListTranslations(ctx)
	_, _ = d.GetTranslation(ctx, "t")
	_, _ = d.CreateTranslation(ctx, models.TranslationInput{Title: "t"})
	_, _ = d.UpdateTranslation(ctx, "t", models.TranslationInput{Title: "t"})
	_ = d.DeleteTranslation(ctx, "t")
	_, _ = d.ListUsers(ctx)
	_ = d.DeleteUser(ctx, "u")
	_ = d.SetAdmin(ctx, "u", true)
	_, _ = d.SignIn(ctx, models.Credentials{})
	_, _ = d.SignUp(ctx, models.SignUpInput{})

	ops := []string{
		"ListPoems", "GetPoem", "CreatePoem", "UpdatePoem", "DeletePoem", "LikePoem",
		"AddComment", "DeleteComment", "ListTranslations", "GetTranslation",
		"CreateTranslation", "UpdateTranslation", "DeleteTranslation",
		"ListUsers", "DeleteUser", "SetAdmin", "SignIn", "SignUp",
	}
	for _, op := range ops {
		if store.count(op) != 1 || remote.count(op) != 0 {
			t.Errorf("%s: store=%d remote=%d", op, store.count(op), remote.count(op))
		}
	}
	if d.ID() != backend.Store {
		t.Errorf("ID() = %q", d.ID())
	}
}
