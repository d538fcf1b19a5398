// Package backend defines the contract both storage adapters implement and
// the tagged errors they return.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"poetryhub/pkg/models"
)

// ID names a backend. The zero value is not a valid backend.
type ID string

const (
	Remote ID = "remote"
	Store  ID = "store"
)

// IDs lists every known backend in display order.
var IDs = []ID{Remote, Store}

// legacy names still found in persisted preferences
var aliases = map[string]ID{
	"heroku":   Remote,
	"supabase": Store,
}

// ParseID accepts a backend name or one of its legacy aliases.
func ParseID(s string) (ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch ID(s) {
	case Remote, Store:
		return ID(s), nil
	}
	if id, ok := aliases[s]; ok {
		return id, nil
	}
	return "", fmt.Errorf("unknown backend %q", s)
}

func (id ID) Valid() bool {
	return id == Remote || id == Store
}

func (id ID) String() string { return string(id) }

// Service is one backend translated into the canonical model. Every method
// returns canonical values or a *Error tagged with the backend's ID.
type Service interface {
	ID() ID

	ListPoems(ctx context.Context) ([]models.Poem, error)
	GetPoem(ctx context.Context, id string) (models.Poem, error)
	CreatePoem(ctx context.Context, in models.PoemInput) (models.Poem, error)
	UpdatePoem(ctx context.Context, id string, in models.PoemInput) (models.Poem, error)
	DeletePoem(ctx context.Context, id string) error
	LikePoem(ctx context.Context, id string) (int, error)

	AddComment(ctx context.Context, poemID string, in models.CommentInput) (models.Comment, error)
	DeleteComment(ctx context.Context, poemID, commentID string) error

	ListTranslations(ctx context.Context) ([]models.TranslationSummary, error)
	GetTranslation(ctx context.Context, id string) (models.Translation, error)
	CreateTranslation(ctx context.Context, in models.TranslationInput) (models.TranslationSummary, error)
	UpdateTranslation(ctx context.Context, id string, in models.TranslationInput) (models.TranslationSummary, error)
	DeleteTranslation(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id string) error
	SetAdmin(ctx context.Context, id string, admin bool) error

	SignIn(ctx context.Context, c models.Credentials) (models.Session, error)
	SignUp(ctx context.Context, in models.SignUpInput) (models.User, error)
}

// TokenIssuer mints the bearer credential for a verified user. Backends that
// verify credentials in-process use it; the token is opaque to them.
type TokenIssuer interface {
	Sign(u models.User) (token string, expires time.Time, err error)
}
