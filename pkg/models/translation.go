package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PoemDocumentPrefix marks a translation title as a poem document.
const PoemDocumentPrefix = "POEM"

// DefaultDocumentType is assumed when a stored document carries no content type.
const DefaultDocumentType = "application/pdf"

// Document is a renderable byte stream with its content type.
type Document struct {
	Data        []byte `json:"data"`
	ContentType string `json:"contentType"`
}

// Translation carries exactly one of Document or Content. A translation with
// neither is in the error state and must be rendered as "no content available".
type Translation struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Document  *Document `json:"-"`
	Content   string    `json:"content,omitempty"`
}

type TranslationState int

const (
	StateEmpty TranslationState = iota
	StateDocument
	StateText
)

func (s TranslationState) String() string {
	switch s {
	case StateDocument:
		return "document"
	case StateText:
		return "text"
	default:
		return "empty"
	}
}

func (t Translation) State() TranslationState {
	switch {
	case t.Document != nil && len(t.Document.Data) > 0:
		return StateDocument
	case t.Content != "":
		return StateText
	default:
		return StateEmpty
	}
}

// Summary drops the body of the translation.
func (t Translation) Summary() TranslationSummary {
	return TranslationSummary{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt}
}

// TranslationSummary is what listings return; bodies are fetched one at a time.
type TranslationSummary struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsPoemDocument reports whether a translation title carries the reserved prefix.
func IsPoemDocument(title string) bool {
	return strings.HasPrefix(strings.TrimSpace(title), PoemDocumentPrefix)
}

// PoemDocumentTitle strips the reserved prefix, and one separator after it,
// when the prefix stands as its own word ("POEM Ithaca" -> "Ithaca").
func PoemDocumentTitle(title string) string {
	title = strings.TrimSpace(title)
	rest, ok := strings.CutPrefix(title, PoemDocumentPrefix)
	if !ok {
		return title
	}
	if rest == "" {
		return rest
	}
	r, size := utf8.DecodeRuneInString(rest)
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		return title
	}
	if unicode.IsSpace(r) {
		rest = rest[size:]
	}
	return strings.TrimSpace(rest)
}

// PoemFromDocument lists a poem document as a poem entry.
func PoemFromDocument(s TranslationSummary) Poem {
	return Poem{
		ID:             s.ID,
		Title:          PoemDocumentTitle(s.Title),
		ContentEnglish: MissingTranslation,
		ContentGreek:   MissingTranslation,
		Comments:       []Comment{},
		CreatedAt:      s.CreatedAt,
		DocumentID:     s.ID,
	}
}

// SplitPoemDocuments separates a translation listing into regular
// translations and poem documents. Order is preserved in both halves.
func SplitPoemDocuments(all []TranslationSummary) (translations []TranslationSummary, documents []Poem) {
	translations = make([]TranslationSummary, 0, len(all))
	for _, s := range all {
		if IsPoemDocument(s.Title) {
			documents = append(documents, PoemFromDocument(s))
			continue
		}
		translations = append(translations, s)
	}
	return translations, documents
}

// TranslationInput is the writable part of a translation. A zero Date lets
// the backend stamp the record.
type TranslationInput struct {
	Title    string    `json:"title"`
	Date     time.Time `json:"date,omitempty"`
	Document *Document `json:"-"`
	Content  string    `json:"content,omitempty"`
}

// Validate checks the input for a create. Updates may omit the body.
func (in TranslationInput) Validate() error {
	return in.validate(true)
}

func (in TranslationInput) ValidateUpdate() error {
	return in.validate(false)
}

func (in TranslationInput) validate(requireBody bool) error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 300), validation.By(notBlank)),
		validation.Field(&in.Content, validation.By(func(any) error {
			hasDoc := in.Document != nil && len(in.Document.Data) > 0
			hasText := strings.TrimSpace(in.Content) != ""
			switch {
			case hasDoc && hasText:
				return validation.NewError("validation_translation_body", "provide a document or text content, not both")
			case requireBody && !hasDoc && !hasText:
				return validation.NewError("validation_translation_body", "a document or text content is required")
			}
			return nil
		})),
	)
}
