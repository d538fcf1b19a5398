// Package store is the direct-store backend: it reads and writes the four
// store tables through bun and maps rows into the canonical model.
package store

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"

	"poetryhub/internal/backend"
)

// Adapter implements backend.Service over a bun database. It holds no
// mutable state and is safe for concurrent use.
type Adapter struct {
	db     *bun.DB
	tokens backend.TokenIssuer
	log    *slog.Logger
}

type Option func(*Adapter)

func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// New returns a store adapter. tokens mints sessions on sign-in; without it
// sign-in fails.
func New(db *bun.DB, tokens backend.TokenIssuer, opts ...Option) *Adapter {
	a := &Adapter{
		db:     db,
		tokens: tokens,
		log:    slog.Default().With("component", "store"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) ID() backend.ID { return backend.Store }

// DB exposes the underlying handle for tooling (imports, tests).
func (a *Adapter) DB() *bun.DB { return a.db }

// fail tags a driver error with the kind it maps to.
func (a *Adapter) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *backend.Error
	if errors.As(err, &be) {
		return err
	}

	kind := backend.KindBackendUnreachable
	switch {
	case errors.Is(err, sql.ErrNoRows):
		kind = backend.KindNotFound
	case isUniqueViolation(err):
		kind = backend.KindConflict
	default:
		a.log.Error("store query failed", "op", op, "error", err)
	}
	return &backend.Error{Kind: kind, Backend: backend.Store, Op: op, Err: err}
}

func (a *Adapter) invalid(op string, err error) error {
	return &backend.Error{Kind: backend.KindValidationFailed, Backend: backend.Store, Op: op, Msg: err.Error(), Err: err}
}

func notFound(op string) error {
	return &backend.Error{Kind: backend.KindNotFound, Backend: backend.Store, Op: op}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// affected turns a zero-row write into NotFound.
func affected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return notFound(op)
	}
	return nil
}

var _ backend.Service = (*Adapter)(nil)
