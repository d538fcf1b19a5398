package remote

import (
	"cmp"
	"slices"
	"time"

	"poetryhub/pkg/models"
)

// Field maps between the canonical model and the remote API's JSON names.
var (
	PoemFields = models.FieldMap{
		Entity: "poem",
		Fields: []models.FieldMapping{
			{Canonical: "ID", Native: "_id"},
			{Canonical: "Title", Native: "title"},
			{Canonical: "ContentEnglish", Native: "contentEnglish"},
			{Canonical: "ContentGreek", Native: "contentGreek"},
			{Canonical: "Likes", Native: "likes"},
			{Canonical: "Comments", Native: "comments"},
			{Canonical: "CreatedAt", Native: "createdAt"},
			{Canonical: "DocumentID", Native: "documentId"},
		},
		Dropped: []string{"updatedAt", "__v"},
	}

	CommentFields = models.FieldMap{
		Entity: "comment",
		Fields: []models.FieldMapping{
			{Canonical: "ID", Native: "_id"},
			{Canonical: "PoemID", Native: "poemId"},
			{Canonical: "Author", Native: "author"},
			{Canonical: "Text", Native: "text"},
			{Canonical: "CreatedAt", Native: "createdAt"},
		},
	}

	TranslationFields = models.FieldMap{
		Entity: "translation",
		Fields: []models.FieldMapping{
			{Canonical: "ID", Native: "_id"},
			{Canonical: "Title", Native: "title"},
			{Canonical: "CreatedAt", Native: "createdAt"},
			{Canonical: "Content", Native: "content"},
			{Canonical: "Document.ContentType", Native: "contentType"},
		},
		// the document itself only ever arrives from the stream route
		Dropped: []string{"hasDocument", "updatedAt", "__v"},
		Derived: []string{"Document"},
	}

	UserFields = models.FieldMap{
		Entity: "user",
		Fields: []models.FieldMapping{
			{Canonical: "ID", Native: "_id"},
			{Canonical: "Username", Native: "username"},
			{Canonical: "Email", Native: "email"},
			{Canonical: "IsAdmin", Native: "isAdmin"},
			{Canonical: "CreatedAt", Native: "createdAt"},
		},
		Dropped: []string{"password", "__v"},
	}

	SessionFields = models.FieldMap{
		Entity: "session",
		Fields: []models.FieldMapping{
			{Canonical: "Token", Native: "token"},
			{Canonical: "UserID", Native: "userId"},
			{Canonical: "Email", Native: "email"},
			{Canonical: "IsAdmin", Native: "isAdmin"},
			{Canonical: "ExpiresAt", Native: "expiresAt"},
		},
	}
)

type wirePoem struct {
	ID             string        `json:"_id"`
	Title          string        `json:"title"`
	ContentEnglish string        `json:"contentEnglish"`
	ContentGreek   string        `json:"contentGreek"`
	Likes          int           `json:"likes"`
	Comments       []wireComment `json:"comments"`
	CreatedAt      time.Time     `json:"createdAt"`
	DocumentID     string        `json:"documentId,omitempty"`
	UpdatedAt      *time.Time    `json:"updatedAt,omitempty"`
	Version        int           `json:"__v,omitempty"`
}

func (w wirePoem) toPoem() models.Poem {
	p := models.Poem{
		ID:             w.ID,
		Title:          w.Title,
		ContentEnglish: models.ContentOrPlaceholder(w.ContentEnglish),
		ContentGreek:   models.ContentOrPlaceholder(w.ContentGreek),
		Likes:          max(w.Likes, 0),
		Comments:       make([]models.Comment, 0, len(w.Comments)),
		CreatedAt:      w.CreatedAt.UTC(),
		DocumentID:     w.DocumentID,
	}
	for _, c := range w.Comments {
		cm := c.toComment()
		if cm.PoemID == "" {
			cm.PoemID = w.ID
		}
		p.Comments = append(p.Comments, cm)
	}
	// the remote appends comments; canonical order is newest first
	slices.SortStableFunc(p.Comments, func(a, b models.Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return p
}

type wireComment struct {
	ID        string    `json:"_id"`
	PoemID    string    `json:"poemId,omitempty"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w wireComment) toComment() models.Comment {
	return models.Comment{
		ID:        w.ID,
		PoemID:    w.PoemID,
		Author:    w.Author,
		Text:      w.Text,
		CreatedAt: w.CreatedAt.UTC(),
	}
}

type wireTranslation struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"createdAt"`
	Content     string     `json:"content,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	HasDocument bool       `json:"hasDocument,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	Version     int        `json:"__v,omitempty"`
}

func (w wireTranslation) toSummary() models.TranslationSummary {
	return models.TranslationSummary{ID: w.ID, Title: w.Title, CreatedAt: w.CreatedAt.UTC()}
}

type wireUser struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	Password  string    `json:"password,omitempty"`
	Version   int       `json:"__v,omitempty"`
}

func (w wireUser) toUser() models.User {
	return models.User{
		ID:        w.ID,
		Username:  w.Username,
		Email:     w.Email,
		IsAdmin:   w.IsAdmin,
		CreatedAt: w.CreatedAt.UTC(),
	}
}

type wireSession struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// wireSignUp accepts both {"msg", "user": {...}} and a bare user object.
type wireSignUp struct {
	wireUser
	Msg  string    `json:"msg,omitempty"`
	User *wireUser `json:"user,omitempty"`
}

// wireError is any of the error bodies the remote is known to send.
type wireError struct {
	Error   string `json:"error"`
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

func (w wireError) text() string {
	return cmp.Or(w.Error, w.Msg, w.Message)
}

type wireLikes struct {
	Likes int `json:"likes"`
}
