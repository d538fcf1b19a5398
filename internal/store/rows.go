package store

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"poetryhub/pkg/models"
)

// Field maps between the canonical model and the store's snake_case columns.
var (
	PoemFields = models.FieldMap{
		Entity: "poem",
		Fields: []models.FieldMapping{
			{Canonical: "ID", Native: "id"},
			{Canonical: "Title", Native: "title"},
			{Canonical: "ContentEnglish", Native: "content_english"},
			{Canonical: "ContentGreek", Native: "content_greek"},
			{Canonical: "Likes", Native: "likes"},
			{Canonical: "CreatedAt", Native: "created_at"},
		},
		Dropped: []string{"updated_at"},
		Derived: []string{"Comments", "DocumentID"},
	}

	CommentFields = models.FieldMap{
		Entity: "comment",
		Fields: []models.FieldMapping{
			{Canonical: "ID", Native: "id"},
			{Canonical: "PoemID", Native: "poem_id"},
			{Canonical: "Author", Native: "author"},
			{Canonical: "Text", Native: "text"},
			{Canonical: "CreatedAt", Native: "created_at"},
		},
	}

	TranslationFields = models.FieldMap{
		Entity: "translation",
		Fields: []models.FieldMapping{
			{Canonical: "ID", Native: "id"},
			{Canonical: "Title", Native: "title"},
			{Canonical: "CreatedAt", Native: "created_at"},
			{Canonical: "Document", Native: "pdf_data"},
			{Canonical: "Document.ContentType", Native: "content_type"},
			{Canonical: "Content", Native: "content"},
		},
		Dropped: []string{"updated_at"},
	}

	UserFields = models.FieldMap{
		Entity: "user",
		Fields: []models.FieldMapping{
			{Canonical: "ID", Native: "id"},
			{Canonical: "Username", Native: "username"},
			{Canonical: "Email", Native: "email"},
			{Canonical: "IsAdmin", Native: "is_admin"},
			{Canonical: "CreatedAt", Native: "created_at"},
		},
		Dropped: []string{"password_hash"},
	}
)

type poemRow struct {
	bun.BaseModel `bun:"table:poems,alias:p"`

	ID             string        `bun:"id,pk"`
	Title          string        `bun:"title"`
	ContentEnglish string        `bun:"content_english"`
	ContentGreek   string        `bun:"content_greek"`
	Likes          int           `bun:"likes"`
	CreatedAt      time.Time     `bun:"created_at"`
	UpdatedAt      *time.Time    `bun:"updated_at"`
	Comments       []*commentRow `bun:"rel:has-many,join:id=poem_id"`
}

func (r *poemRow) toPoem() models.Poem {
	p := models.Poem{
		ID:             r.ID,
		Title:          r.Title,
		ContentEnglish: models.ContentOrPlaceholder(r.ContentEnglish),
		ContentGreek:   models.ContentOrPlaceholder(r.ContentGreek),
		Likes:          max(r.Likes, 0),
		Comments:       make([]models.Comment, 0, len(r.Comments)),
		CreatedAt:      r.CreatedAt.UTC(),
	}
	for _, c := range r.Comments {
		p.Comments = append(p.Comments, c.toComment())
	}
	return p
}

type commentRow struct {
	bun.BaseModel `bun:"table:comments,alias:c"`

	ID        string    `bun:"id,pk"`
	PoemID    string    `bun:"poem_id"`
	Author    string    `bun:"author"`
	Text      string    `bun:"text"`
	CreatedAt time.Time `bun:"created_at"`
}

func (r *commentRow) toComment() models.Comment {
	return models.Comment{
		ID:        r.ID,
		PoemID:    r.PoemID,
		Author:    r.Author,
		Text:      r.Text,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type translationRow struct {
	bun.BaseModel `bun:"table:translations,alias:t"`

	ID          string         `bun:"id,pk"`
	Title       string         `bun:"title"`
	PDFData     storedPayload  `bun:"pdf_data"`
	Content     sql.NullString `bun:"content"`
	ContentType sql.NullString `bun:"content_type"`
	CreatedAt   time.Time      `bun:"created_at"`
	UpdatedAt   *time.Time     `bun:"updated_at"`
}

func (r *translationRow) toSummary() models.TranslationSummary {
	return models.TranslationSummary{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt.UTC()}
}

type userRow struct {
	bun.BaseModel `bun:"table:poetry_users,alias:u"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username"`
	Email        string    `bun:"email"`
	PasswordHash string    `bun:"password_hash"`
	IsAdmin      bool      `bun:"is_admin"`
	CreatedAt    time.Time `bun:"created_at"`
}

func (r *userRow) toUser() models.User {
	return models.User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		IsAdmin:   r.IsAdmin,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// storedPayload holds pdf_data exactly as the driver returned it. Blobs stay
// []byte and text stays string, which is what the payload normalizer needs to
// tell binary writers from text writers.
type storedPayload struct {
	v any
}

func textPayload(s string) storedPayload { return storedPayload{v: s} }

func (p *storedPayload) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		p.v = nil
	case []byte:
		p.v = bytes.Clone(s)
	case string:
		p.v = s
	default:
		return fmt.Errorf("pdf_data: unsupported column type %T", src)
	}
	return nil
}

func (p storedPayload) Value() (driver.Value, error) {
	return p.v, nil
}

func (p storedPayload) Empty() bool {
	switch v := p.v.(type) {
	case nil:
		return true
	case []byte:
		return len(v) == 0
	case string:
		return v == ""
	}
	return true
}
