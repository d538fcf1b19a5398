package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"poetryhub/internal/backend"
	"poetryhub/pkg/models"
)

// tokenData is the saved session. Backend records who issued the token so a
// token is only replayed against the backend that minted it.
type tokenData struct {
	Token     string     `json:"token"`
	Backend   backend.ID `json:"backend"`
	Email     string     `json:"email,omitempty"`
	IsAdmin   bool       `json:"isAdmin"`
	ExpiresAt time.Time  `json:"expiresAt,omitempty"`
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.poetryhub-token.json"
	}
	return filepath.Join(home, ".poetryhub", "token.json")
}

func saveToken(path string, id backend.ID, s models.Session) error {
	if s.Token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{
		Token:     s.Token,
		Backend:   id,
		Email:     s.Email,
		IsAdmin:   s.IsAdmin,
		ExpiresAt: s.ExpiresAt,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (tokenData, error) {
	var td tokenData
	data, err := os.ReadFile(path)
	if err != nil {
		return td, err
	}
	if err := json.Unmarshal(data, &td); err != nil {
		return td, err
	}
	td.Token = strings.TrimSpace(td.Token)
	return td, nil
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
