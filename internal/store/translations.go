package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"poetryhub/pkg/models"
	"poetryhub/pkg/payload"
)

func (a *Adapter) translationSummaries(ctx context.Context, op string) ([]models.TranslationSummary, error) {
	var rows []translationRow
	err := a.db.NewSelect().
		Model(&rows).
		Column(TranslationFields.Columns("ID", "Title", "CreatedAt")...).
		OrderExpr("? DESC", bun.Ident(TranslationFields.Native("CreatedAt"))).
		Scan(ctx)
	if err != nil {
		return nil, a.fail(op, err)
	}

	out := make([]models.TranslationSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toSummary())
	}
	return out, nil
}

// ListTranslations leaves poem documents out; ListPoems lists them.
func (a *Adapter) ListTranslations(ctx context.Context) ([]models.TranslationSummary, error) {
	all, err := a.translationSummaries(ctx, "list translations")
	if err != nil {
		return nil, err
	}
	translations, _ := models.SplitPoemDocuments(all)
	return translations, nil
}

// GetTranslation decodes the stored document whatever wrote it. A value the
// normalizer cannot read is dropped, leaving the translation empty.
func (a *Adapter) GetTranslation(ctx context.Context, id string) (models.Translation, error) {
	const op = "get translation"

	var row translationRow
	err := a.db.NewSelect().
		Model(&row).
		Where("? = ?", bun.Ident(TranslationFields.Native("ID")), id).
		Scan(ctx)
	if err != nil {
		return models.Translation{}, a.fail(op, err)
	}

	t := models.Translation{ID: row.ID, Title: row.Title, CreatedAt: row.CreatedAt.UTC()}
	if !row.PDFData.Empty() {
		if p, ok := payload.Normalize(row.PDFData.v, row.ContentType.String); ok {
			t.Document = p.Document()
			a.log.Debug("decoded document", "translation", id, "format", p.Format, "bytes", len(p.Data))
		} else {
			a.log.Warn("undecodable document payload", "translation", id)
		}
	}
	if t.Document == nil && row.Content.Valid && strings.TrimSpace(row.Content.String) != "" {
		t.Content = row.Content.String
	}
	return t, nil
}

func (a *Adapter) CreateTranslation(ctx context.Context, in models.TranslationInput) (models.TranslationSummary, error) {
	const op = "create translation"
	if err := in.Validate(); err != nil {
		return models.TranslationSummary{}, a.invalid(op, err)
	}

	row := translationRow{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		CreatedAt: now(),
	}
	if !in.Date.IsZero() {
		row.CreatedAt = in.Date.UTC()
	}
	setBody(&row, in)

	if _, err := a.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return models.TranslationSummary{}, a.fail(op, err)
	}
	return row.toSummary(), nil
}

// UpdateTranslation rewrites the title, and the date and body when given.
// A new body replaces the old one of either kind.
func (a *Adapter) UpdateTranslation(ctx context.Context, id string, in models.TranslationInput) (models.TranslationSummary, error) {
	const op = "update translation"
	if err := in.ValidateUpdate(); err != nil {
		return models.TranslationSummary{}, a.invalid(op, err)
	}

	var row translationRow
	err := a.db.NewSelect().
		Model(&row).
		Where("? = ?", bun.Ident(TranslationFields.Native("ID")), id).
		Scan(ctx)
	if err != nil {
		return models.TranslationSummary{}, a.fail(op, err)
	}

	updated := now()
	row.Title = strings.TrimSpace(in.Title)
	row.UpdatedAt = &updated
	cols := []string{TranslationFields.Native("Title"), "updated_at"}

	if !in.Date.IsZero() {
		row.CreatedAt = in.Date.UTC()
		cols = append(cols, TranslationFields.Native("CreatedAt"))
	}
	if hasBody(in) {
		setBody(&row, in)
		cols = append(cols, TranslationFields.Columns("Document", "Document.ContentType", "Content")...)
	}

	if _, err := a.db.NewUpdate().Model(&row).Column(cols...).WherePK().Exec(ctx); err != nil {
		return models.TranslationSummary{}, a.fail(op, err)
	}
	return row.toSummary(), nil
}

func (a *Adapter) DeleteTranslation(ctx context.Context, id string) error {
	const op = "delete translation"

	res, err := a.db.NewDelete().
		Model((*translationRow)(nil)).
		Where("? = ?", bun.Ident(TranslationFields.Native("ID")), id).
		Exec(ctx)
	if err != nil {
		return a.fail(op, err)
	}
	return affected(op, res)
}

func hasBody(in models.TranslationInput) bool {
	return (in.Document != nil && len(in.Document.Data) > 0) || strings.TrimSpace(in.Content) != ""
}

// setBody stores exactly one of document or text. Documents are written as
// base64 text, which every reader of the table understands.
func setBody(row *translationRow, in models.TranslationInput) {
	if in.Document != nil && len(in.Document.Data) > 0 {
		ct := in.Document.ContentType
		if ct == "" {
			ct = models.DefaultDocumentType
		}
		row.PDFData = textPayload(base64.StdEncoding.EncodeToString(in.Document.Data))
		row.ContentType = sql.NullString{String: ct, Valid: true}
		row.Content = sql.NullString{}
		return
	}
	row.PDFData = storedPayload{}
	row.ContentType = sql.NullString{}
	row.Content = sql.NullString{String: in.Content, Valid: true}
}
