package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"poetryhub/internal/backend"
	"poetryhub/pkg/models"
)

func (a *Adapter) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "list users"

	var rows []userRow
	err := a.db.NewSelect().
		Model(&rows).
		Column(UserFields.Columns("ID", "Username", "Email", "IsAdmin", "CreatedAt")...).
		OrderExpr("? DESC", bun.Ident(UserFields.Native("CreatedAt"))).
		Scan(ctx)
	if err != nil {
		return nil, a.fail(op, err)
	}

	out := make([]models.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toUser())
	}
	return out, nil
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	const op = "delete user"

	res, err := a.db.NewDelete().
		Model((*userRow)(nil)).
		Where("? = ?", bun.Ident(UserFields.Native("ID")), id).
		Exec(ctx)
	if err != nil {
		return a.fail(op, err)
	}
	return affected(op, res)
}

func (a *Adapter) SetAdmin(ctx context.Context, id string, admin bool) error {
	op := "remove admin"
	if admin {
		op = "make admin"
	}

	row := userRow{ID: id, IsAdmin: admin}
	res, err := a.db.NewUpdate().
		Model(&row).
		Column(UserFields.Native("IsAdmin")).
		WherePK().
		Exec(ctx)
	if err != nil {
		return a.fail(op, err)
	}
	return affected(op, res)
}

// absentUserHash is compared against when no user matches the email.
var absentUserHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// SignIn checks the password against the stored hash. An unknown email and a
// wrong password fail the same way.
func (a *Adapter) SignIn(ctx context.Context, c models.Credentials) (models.Session, error) {
	const op = "sign in"
	if err := c.Validate(); err != nil {
		return models.Session{}, a.invalid(op, err)
	}
	c = c.Normalized()

	var row userRow
	err := a.db.NewSelect().
		Model(&row).
		Where("? = ?", bun.Ident(UserFields.Native("Email")), c.Email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		// same bcrypt work as a wrong password
		_ = bcrypt.CompareHashAndPassword(absentUserHash(), []byte(c.Password))
		return models.Session{}, invalidCredentials(op)
	}
	if err != nil {
		return models.Session{}, a.fail(op, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(c.Password)) != nil {
		return models.Session{}, invalidCredentials(op)
	}

	if a.tokens == nil {
		return models.Session{}, backend.Errorf(backend.KindBackendUnreachable, backend.Store, op, "no token issuer configured")
	}
	user := row.toUser()
	token, exp, err := a.tokens.Sign(user)
	if err != nil {
		return models.Session{}, backend.Wrap(backend.KindBackendUnreachable, backend.Store, op, err)
	}

	return models.Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		ExpiresAt: exp,
	}, nil
}

func (a *Adapter) SignUp(ctx context.Context, in models.SignUpInput) (models.User, error) {
	const op = "sign up"
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return models.User{}, a.invalid(op, err)
	}

	exists, err := a.db.NewSelect().
		Model((*userRow)(nil)).
		Where("? = ?", bun.Ident(UserFields.Native("Email")), in.Email).
		Exists(ctx)
	if err != nil {
		return models.User{}, a.fail(op, err)
	}
	if exists {
		return models.User{}, userExists(op)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, backend.Wrap(backend.KindBackendUnreachable, backend.Store, op, err)
	}

	row := userRow{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    now(),
	}
	if _, err := a.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, userExists(op)
		}
		return models.User{}, a.fail(op, err)
	}
	return row.toUser(), nil
}

func invalidCredentials(op string) error {
	return backend.Errorf(backend.KindUnauthorized, backend.Store, op, "invalid credentials")
}

func userExists(op string) error {
	return backend.Errorf(backend.KindConflict, backend.Store, op, "user already exists")
}
