package remote

import (
	"context"
	"net/http"

	"poetryhub/internal/backend"
	"poetryhub/pkg/models"
)

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var all []wireUser
	if err := c.doJSON(ctx, "list users", http.MethodGet, c.endpoint("users"), nil, &all); err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(all))
	for _, w := range all {
		out = append(out, w.toUser())
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete user", http.MethodDelete, c.endpoint("user", id), nil, nil)
}

func (c *Client) SetAdmin(ctx context.Context, id string, admin bool) error {
	action := "remove-admin"
	if admin {
		action = "make-admin"
	}
	return c.doJSON(ctx, "set admin", http.MethodPut, c.endpoint("user", id, action), nil, nil)
}

// SignIn sends the credentials to the remote, which verifies them. Any
// rejection reads as invalid credentials regardless of what the remote said.
func (c *Client) SignIn(ctx context.Context, cred models.Credentials) (models.Session, error) {
	const op = "sign in"
	if err := cred.Validate(); err != nil {
		return models.Session{}, c.invalid(op, err)
	}
	cred = cred.Normalized()

	var w wireSession
	err := c.doJSON(ctx, op, http.MethodPost, c.endpoint("login"), cred, &w)
	if err != nil {
		switch backend.KindOf(err) {
		case backend.KindUnauthorized, backend.KindNotFound, backend.KindValidationFailed:
			return models.Session{}, &backend.Error{Kind: backend.KindUnauthorized, Backend: backend.Remote, Op: op}
		}
		return models.Session{}, err
	}
	if w.Token == "" {
		return models.Session{}, &backend.Error{Kind: backend.KindBackendUnreachable, Backend: backend.Remote, Op: op, Msg: "response carried no token"}
	}

	s := models.Session{
		Token:     w.Token,
		UserID:    w.UserID,
		Email:     w.Email,
		IsAdmin:   w.IsAdmin,
		ExpiresAt: w.ExpiresAt.UTC(),
	}
	if s.Email == "" {
		s.Email = cred.Email
	}
	return s, nil
}

func (c *Client) SignUp(ctx context.Context, in models.SignUpInput) (models.User, error) {
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return models.User{}, c.invalid(opSignUp, err)
	}

	var w wireSignUp
	if err := c.doJSON(ctx, opSignUp, http.MethodPost, c.endpoint("signup"), in, &w); err != nil {
		return models.User{}, err
	}
	u := w.wireUser.toUser()
	if w.User != nil {
		u = w.User.toUser()
	}
	if u.Username == "" {
		u.Username = in.Username
	}
	if u.Email == "" {
		u.Email = in.Email
	}
	return u, nil
}

var _ backend.Service = (*Client)(nil)
