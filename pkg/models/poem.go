package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MissingTranslation stands in for an English or Greek text that has not
// been written yet. Poem contents are never empty.
const MissingTranslation = "This work has no translation yet..."

// Poem is the canonical, backend-independent form of a poem.
//
// Both adapters map their own row/response shapes into this structure;
// nothing outside an adapter sees backend field names.
type Poem struct {
	ID             string    `json:"_id"`
	Title          string    `json:"title"`
	ContentEnglish string    `json:"contentEnglish"` // rich markup
	ContentGreek   string    `json:"contentGreek"`   // rich markup
	Likes          int       `json:"likes"`
	Comments       []Comment `json:"comments"` // newest first
	CreatedAt      time.Time `json:"createdAt"`

	// DocumentID is set when the entry is a poem document: a translation
	// record listed as an alternate scanned representation of a poem.
	DocumentID string `json:"documentId,omitempty"`
}

// IsDocument reports whether the poem entry points at a scanned document
// instead of carrying its own text.
func (p Poem) IsDocument() bool { return p.DocumentID != "" }

// Comment is immutable once created; it can only be deleted.
type Comment struct {
	ID        string    `json:"_id"`
	PoemID    string    `json:"poemId,omitempty"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// PoemInput is the writable part of a poem.
type PoemInput struct {
	Title          string `json:"title"`
	ContentEnglish string `json:"contentEnglish"`
	ContentGreek   string `json:"contentGreek"`
}

func (in PoemInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 300), validation.By(notBlank)),
	)
}

// Normalized returns a copy with trimmed title and placeholder contents.
func (in PoemInput) Normalized() PoemInput {
	in.Title = strings.TrimSpace(in.Title)
	in.ContentEnglish = ContentOrPlaceholder(in.ContentEnglish)
	in.ContentGreek = ContentOrPlaceholder(in.ContentGreek)
	return in
}

type CommentInput struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

func (in CommentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Author, validation.Required, validation.Length(1, 100), validation.By(notBlank)),
		validation.Field(&in.Text, validation.Required, validation.Length(1, 5000), validation.By(notBlank)),
	)
}

// ContentOrPlaceholder maps an absent text to MissingTranslation.
func ContentOrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return MissingTranslation
	}
	return s
}

// HasTranslation reports whether s holds real text rather than the placeholder.
func HasTranslation(s string) bool {
	return strings.TrimSpace(s) != MissingTranslation && strings.TrimSpace(s) != ""
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_not_blank", "cannot be blank")
	}
	return nil
}
