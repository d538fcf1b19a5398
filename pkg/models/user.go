package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// User never carries the stored credential secret; it stays inside the store.
type User struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Session is the result of a successful sign-in. The token is opaque to
// everything except the issuer.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// Normalized lowercases and trims the email, as the user table stores it.
func (c Credentials) Normalized() Credentials {
	c.Email = NormalizeEmail(c.Email)
	return c
}

type SignUpInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the normalized form, so surrounding spaces and case in
// the email are accepted.
func (in SignUpInput) Validate() error {
	in = in.Normalized()
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(3, 30)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 255), is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 72)),
	)
}

func (in SignUpInput) Normalized() SignUpInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	return in
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
