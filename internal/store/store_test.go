package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"poetryhub/internal/backend"
	"poetryhub/pkg/database"
	"poetryhub/pkg/models"
)

var sampleDoc = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

type fakeIssuer struct{}

func (fakeIssuer) Sign(u models.User) (string, time.Time, error) {
	return "token-" + u.ID, time.Now().Add(time.Hour), nil
}

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenBun(database.Config{
		Driver: database.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name),
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	return New(db, fakeIssuer{})
}

func TestPoemRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	in := models.PoemInput{
		Title:          "Ithaca",
		ContentEnglish: "<p>As you set out for Ithaca</p>",
		ContentGreek:   "<p>Σα βγεις στον πηγαιμό για την Ιθάκη</p>",
	}
	created, err := a.CreatePoem(ctx, in)
	if err != nil {
		t.Fatalf("CreatePoem() error = %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("store should assign id and timestamp: %+v", created)
	}

	got, err := a.GetPoem(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPoem() error = %v", err)
	}
	if got.Title != in.Title || got.ContentEnglish != in.ContentEnglish || got.ContentGreek != in.ContentGreek {
		t.Errorf("round trip changed fields: %+v", got)
	}
	if got.Likes != 0 || len(got.Comments) != 0 || got.Comments == nil {
		t.Errorf("new poem should have no likes and an empty comment list: %+v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestPoemPlaceholderAndValidation(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	p, err := a.CreatePoem(ctx, models.PoemInput{Title: "Waiting for the Barbarians", ContentGreek: "<p>Τι περιμένουμε</p>"})
	if err != nil {
		t.Fatalf("CreatePoem() error = %v", err)
	}
	got, err := a.GetPoem(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPoem() error = %v", err)
	}
	if got.ContentEnglish != models.MissingTranslation {
		t.Errorf("missing English = %q, want placeholder", got.ContentEnglish)
	}

	_, err = a.CreatePoem(ctx, models.PoemInput{Title: "   "})
	if !errors.Is(err, backend.ErrValidationFailed) || backend.BackendOf(err) != backend.Store {
		t.Errorf("blank title error = %v", err)
	}

	_, err = a.GetPoem(ctx, "missing")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("GetPoem(missing) error = %v", err)
	}
	if got, want := err.Error(), "store: get poem: not found"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestUpdateAndDeletePoem(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	p, err := a.CreatePoem(ctx, models.PoemInput{Title: "The City", ContentEnglish: "You said"})
	if err != nil {
		t.Fatalf("CreatePoem() error = %v", err)
	}
	if _, err := a.AddComment(ctx, p.ID, models.CommentInput{Author: "reader", Text: "bleak"}); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if _, err := a.LikePoem(ctx, p.ID); err != nil {
		t.Fatalf("LikePoem() error = %v", err)
	}

	updated, err := a.UpdatePoem(ctx, p.ID, models.PoemInput{Title: "The City (1910)", ContentEnglish: "You said, I will go"})
	if err != nil {
		t.Fatalf("UpdatePoem() error = %v", err)
	}
	if updated.Title != "The City (1910)" || updated.Likes != 1 || len(updated.Comments) != 1 {
		t.Errorf("update lost data: %+v", updated)
	}
	if updated.ContentGreek != models.MissingTranslation {
		t.Errorf("ContentGreek = %q", updated.ContentGreek)
	}

	if _, err := a.UpdatePoem(ctx, "missing", models.PoemInput{Title: "x"}); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("UpdatePoem(missing) error = %v", err)
	}

	if err := a.DeletePoem(ctx, p.ID); err != nil {
		t.Fatalf("DeletePoem() error = %v", err)
	}
	if _, err := a.GetPoem(ctx, p.ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("deleted poem still readable: %v", err)
	}
	count, err := a.db.NewSelect().Model((*commentRow)(nil)).Count(ctx)
	if err != nil || count != 0 {
		t.Errorf("comments left behind: %d, %v", count, err)
	}
	if err := a.DeletePoem(ctx, p.ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("second DeletePoem() error = %v", err)
	}
}

func TestCommentsNewestFirst(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	p, err := a.CreatePoem(ctx, models.PoemInput{Title: "Candles"})
	if err != nil {
		t.Fatalf("CreatePoem() error = %v", err)
	}

	for _, text := range []string{"first", "second", "third"} {
		if _, err := a.AddComment(ctx, p.ID, models.CommentInput{Author: "reader", Text: text}); err != nil {
			t.Fatalf("AddComment(%s) error = %v", text, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	got, err := a.GetPoem(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPoem() error = %v", err)
	}
	var texts []string
	for _, c := range got.Comments {
		texts = append(texts, c.Text)
		if c.PoemID != p.ID {
			t.Errorf("comment %s has poem id %q", c.ID, c.PoemID)
		}
	}
	if strings.Join(texts, ",") != "third,second,first" {
		t.Errorf("comment order = %v", texts)
	}

	if err := a.DeleteComment(ctx, p.ID, got.Comments[0].ID); err != nil {
		t.Fatalf("DeleteComment() error = %v", err)
	}
	if err := a.DeleteComment(ctx, "other-poem", got.Comments[1].ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("DeleteComment on the wrong poem error = %v", err)
	}
	if _, err := a.AddComment(ctx, "missing", models.CommentInput{Author: "a", Text: "b"}); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("AddComment(missing) error = %v", err)
	}
	if _, err := a.AddComment(ctx, p.ID, models.CommentInput{Author: "", Text: "b"}); !errors.Is(err, backend.ErrValidationFailed) {
		t.Errorf("AddComment without author error = %v", err)
	}
}

func TestLikePoem(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	p, err := a.CreatePoem(ctx, models.PoemInput{Title: "Walls"})
	if err != nil {
		t.Fatalf("CreatePoem() error = %v", err)
	}
	for want := 1; want <= 3; want++ {
		got, err := a.LikePoem(ctx, p.ID)
		if err != nil {
			t.Fatalf("LikePoem() error = %v", err)
		}
		if got != want {
			t.Errorf("LikePoem() = %d, want %d", got, want)
		}
	}
	if _, err := a.LikePoem(ctx, "missing"); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("LikePoem(missing) error = %v", err)
	}
}

func TestTranslationDocumentRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	date := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	s, err := a.CreateTranslation(ctx, models.TranslationInput{
		Title:    "Odyssey, Book I",
		Date:     date,
		Document: &models.Document{Data: sampleDoc},
	})
	if err != nil {
		t.Fatalf("CreateTranslation() error = %v", err)
	}
	if !s.CreatedAt.Equal(date) {
		t.Errorf("created_at = %v, want %v", s.CreatedAt, date)
	}

	got, err := a.GetTranslation(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetTranslation() error = %v", err)
	}
	if got.State() != models.StateDocument {
		t.Fatalf("state = %v", got.State())
	}
	if !bytes.Equal(got.Document.Data, sampleDoc) || got.Document.ContentType != models.DefaultDocumentType {
		t.Errorf("document changed: %q %s", got.Document.Data, got.Document.ContentType)
	}
	if got.Title != "Odyssey, Book I" || !got.CreatedAt.Equal(date) {
		t.Errorf("fields changed: %+v", got)
	}

	var stored string
	if err := a.db.NewSelect().Model((*translationRow)(nil)).Column("pdf_data").Where("id = ?", s.ID).Scan(ctx, &stored); err != nil {
		t.Fatalf("read raw column: %v", err)
	}
	if stored != base64.StdEncoding.EncodeToString(sampleDoc) {
		t.Errorf("documents should be written as base64 text, got %.20q", stored)
	}
}

func TestTranslationTextAndUpdate(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	s, err := a.CreateTranslation(ctx, models.TranslationInput{Title: "Letters", Content: "Dear friend"})
	if err != nil {
		t.Fatalf("CreateTranslation() error = %v", err)
	}
	got, err := a.GetTranslation(ctx, s.ID)
	if err != nil || got.State() != models.StateText || got.Content != "Dear friend" {
		t.Fatalf("text translation = %+v, %v", got, err)
	}

	// title only: body untouched
	if _, err := a.UpdateTranslation(ctx, s.ID, models.TranslationInput{Title: "Letters (revised)"}); err != nil {
		t.Fatalf("UpdateTranslation() error = %v", err)
	}
	got, _ = a.GetTranslation(ctx, s.ID)
	if got.Title != "Letters (revised)" || got.Content != "Dear friend" {
		t.Errorf("title-only update = %+v", got)
	}

	// a document replaces the text
	if _, err := a.UpdateTranslation(ctx, s.ID, models.TranslationInput{Title: "Letters", Document: &models.Document{Data: sampleDoc}}); err != nil {
		t.Fatalf("UpdateTranslation(document) error = %v", err)
	}
	got, _ = a.GetTranslation(ctx, s.ID)
	if got.State() != models.StateDocument || got.Content != "" {
		t.Errorf("document update left state %v content %q", got.State(), got.Content)
	}

	if _, err := a.UpdateTranslation(ctx, "missing", models.TranslationInput{Title: "x"}); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("UpdateTranslation(missing) error = %v", err)
	}
	if _, err := a.CreateTranslation(ctx, models.TranslationInput{Title: "empty"}); !errors.Is(err, backend.ErrValidationFailed) {
		t.Errorf("CreateTranslation without body error = %v", err)
	}

	if err := a.DeleteTranslation(ctx, s.ID); err != nil {
		t.Fatalf("DeleteTranslation() error = %v", err)
	}
	if err := a.DeleteTranslation(ctx, s.ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("second DeleteTranslation() error = %v", err)
	}
}

func hexEscape(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		fmt.Fprintf(&sb, `\x%02x`, c)
	}
	return sb.String()
}

// Rows written by older writers, one per historical encoding.
func TestGetTranslationLegacyEncodings(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	b64 := base64.StdEncoding.EncodeToString(sampleDoc)

	tests := []struct {
		name    string
		stored  storedPayload
		wantDoc bool
	}{
		{"binary", storedPayload{v: sampleDoc}, true},
		{"base64", textPayload(b64), true},
		{"hex", textPayload(hex.EncodeToString(sampleDoc)), true},
		{"hex-escaped base64", textPayload(hexEscape([]byte(b64))), true},
		{"bytea text of base64", textPayload(`\x` + hex.EncodeToString([]byte(b64))), true},
		{"garbage", textPayload("not a real payload!!"), false},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := translationRow{
				ID:        fmt.Sprintf("legacy-%d", i),
				Title:     tt.name,
				PDFData:   tt.stored,
				CreatedAt: now(),
			}
			if _, err := a.db.NewInsert().Model(&row).Exec(ctx); err != nil {
				t.Fatalf("insert legacy row: %v", err)
			}

			got, err := a.GetTranslation(ctx, row.ID)
			if err != nil {
				t.Fatalf("GetTranslation() error = %v", err)
			}
			if !tt.wantDoc {
				if got.Document != nil || got.Content != "" || got.State() != models.StateEmpty {
					t.Errorf("undecodable payload should leave the translation empty: %+v", got)
				}
				return
			}
			if got.Document == nil || !bytes.Equal(got.Document.Data, sampleDoc) {
				t.Errorf("document not recovered from %s", tt.name)
			}
		})
	}
}

func TestPoemDocumentsListedAsPoems(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.CreatePoem(ctx, models.PoemInput{Title: "Ithaca"}); err != nil {
		t.Fatal(err)
	}
	doc, err := a.CreateTranslation(ctx, models.TranslationInput{Title: "POEM Ithaca (scan)", Document: &models.Document{Data: sampleDoc}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.CreateTranslation(ctx, models.TranslationInput{Title: "Odyssey", Content: "Sing"}); err != nil {
		t.Fatal(err)
	}

	translations, err := a.ListTranslations(ctx)
	if err != nil {
		t.Fatalf("ListTranslations() error = %v", err)
	}
	if len(translations) != 1 || translations[0].Title != "Odyssey" {
		t.Errorf("translations = %+v", translations)
	}

	poems, err := a.ListPoems(ctx)
	if err != nil {
		t.Fatalf("ListPoems() error = %v", err)
	}
	if len(poems) != 2 {
		t.Fatalf("expected 2 poem entries, got %d", len(poems))
	}
	last := poems[len(poems)-1]
	if last.DocumentID != doc.ID || last.Title != "Ithaca (scan)" || last.ContentEnglish != models.MissingTranslation {
		t.Errorf("poem document entry = %+v", last)
	}
	if poems[0].IsDocument() {
		t.Error("stored poems come before poem documents")
	}
}

func TestUsersAndCredentials(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	u, err := a.SignUp(ctx, models.SignUpInput{Username: "kavafis", Email: " C@Alexandria.gr ", Password: "ithaca1911"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if u.Email != "c@alexandria.gr" || u.IsAdmin {
		t.Errorf("signed up user = %+v", u)
	}

	_, err = a.SignUp(ctx, models.SignUpInput{Username: "other", Email: "c@alexandria.gr", Password: "ithaca1911"})
	if !errors.Is(err, backend.ErrConflict) {
		t.Errorf("duplicate SignUp() error = %v", err)
	}

	session, err := a.SignIn(ctx, models.Credentials{Email: "C@alexandria.gr", Password: "ithaca1911"})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if session.Token != "token-"+u.ID || session.UserID != u.ID || session.IsAdmin {
		t.Errorf("session = %+v", session)
	}

	_, wrongPassword := a.SignIn(ctx, models.Credentials{Email: "c@alexandria.gr", Password: "wrong-password"})
	_, unknownEmail := a.SignIn(ctx, models.Credentials{Email: "nobody@alexandria.gr", Password: "ithaca1911"})
	for _, err := range []error{wrongPassword, unknownEmail} {
		if !errors.Is(err, backend.ErrUnauthorized) {
			t.Errorf("expected unauthorized, got %v", err)
		}
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Errorf("credential errors differ: %q vs %q", wrongPassword, unknownEmail)
	}

	if err := a.SetAdmin(ctx, u.ID, true); err != nil {
		t.Fatalf("SetAdmin() error = %v", err)
	}
	users, err := a.ListUsers(ctx)
	if err != nil || len(users) != 1 || !users[0].IsAdmin {
		t.Fatalf("ListUsers() = %+v, %v", users, err)
	}
	session, _ = a.SignIn(ctx, models.Credentials{Email: "c@alexandria.gr", Password: "ithaca1911"})
	if !session.IsAdmin {
		t.Error("session should carry the admin flag")
	}

	if err := a.SetAdmin(ctx, "missing", true); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("SetAdmin(missing) error = %v", err)
	}
	if err := a.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := a.DeleteUser(ctx, u.ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("second DeleteUser() error = %v", err)
	}
}

func TestUnknownEmailCostsLikeWrongPassword(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	u, err := a.SignUp(ctx, models.SignUpInput{Username: "seferis", Email: "g@smyrna.gr", Password: "mythistorema"})
	if err != nil {
		t.Fatal(err)
	}
	var row userRow
	if err := a.db.NewSelect().Model(&row).Where("? = ?", bun.Ident(UserFields.Native("ID")), u.ID).Scan(ctx); err != nil {
		t.Fatal(err)
	}
	stored, err := bcrypt.Cost([]byte(row.PasswordHash))
	if err != nil {
		t.Fatal(err)
	}
	absent, err := bcrypt.Cost(absentUserHash())
	if err != nil {
		t.Fatalf("absent user hash is not a bcrypt hash: %v", err)
	}
	if absent != stored {
		t.Errorf("absent user hash cost = %d, stored cost = %d", absent, stored)
	}

	for _, pw := range []string{"mythistorema", "", "password"} {
		_, err := a.SignIn(ctx, models.Credentials{Email: "nobody@smyrna.gr", Password: pw})
		if !errors.Is(err, backend.ErrUnauthorized) {
			t.Errorf("SignIn(unknown, %q) error = %v", pw, err)
		}
	}
}

func TestUniqueViolationIsConflict(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	row := userRow{ID: "u1", Username: "a", Email: "a@b.gr", PasswordHash: "x", CreatedAt: now()}
	if _, err := a.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		t.Fatal(err)
	}
	row.ID = "u2"
	_, err := a.db.NewInsert().Model(&row).Exec(ctx)
	if err == nil {
		t.Fatal("expected a unique violation")
	}
	if got := a.fail("insert user", err); !errors.Is(got, backend.ErrConflict) {
		t.Errorf("fail() = %v, want conflict", got)
	}
}

func bunColumns(row any) []string {
	typ := reflect.TypeOf(row)
	var out []string
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Anonymous {
			continue
		}
		tag := f.Tag.Get("bun")
		if strings.HasPrefix(tag, "rel:") {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		out = append(out, name)
	}
	return out
}

func canonicalFields(v any) map[string]bool {
	typ := reflect.TypeOf(v)
	out := map[string]bool{}
	for i := 0; i < typ.NumField(); i++ {
		out[typ.Field(i).Name] = true
	}
	return out
}

// Every column has a canonical destination or is dropped, and every
// canonical field is fed by a column or derived.
func TestFieldMapsAreExhaustive(t *testing.T) {
	tests := []struct {
		m         models.FieldMap
		row       any
		canonical any
	}{
		{PoemFields, poemRow{}, models.Poem{}},
		{CommentFields, commentRow{}, models.Comment{}},
		{TranslationFields, translationRow{}, models.Translation{}},
		{UserFields, userRow{}, models.User{}},
	}

	for _, tt := range tests {
		t.Run(tt.m.Entity, func(t *testing.T) {
			fields := canonicalFields(tt.canonical)

			for _, col := range bunColumns(tt.row) {
				if _, ok := tt.m.Canonical(col); !ok {
					t.Errorf("column %q has no canonical destination", col)
				}
			}
			for name := range fields {
				if !tt.m.Covers(name) {
					t.Errorf("canonical field %s is not mapped", name)
				}
			}
			for _, f := range tt.m.Fields {
				root, _, _ := strings.Cut(f.Canonical, ".")
				if !fields[root] {
					t.Errorf("mapping %s -> %s points at no canonical field", f.Native, f.Canonical)
				}
			}
		})
	}
}
