package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"poetryhub/pkg/models"
)

// store timestamps keep microseconds on every driver
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func newestComments(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("? DESC", bun.Ident(CommentFields.Native("CreatedAt")))
}

// ListPoems returns the stored poems, newest first, followed by the poem
// documents found among the translations.
func (a *Adapter) ListPoems(ctx context.Context) ([]models.Poem, error) {
	const op = "list poems"

	var rows []poemRow
	err := a.db.NewSelect().
		Model(&rows).
		Relation("Comments", newestComments).
		OrderExpr("? DESC", bun.Ident(PoemFields.Native("CreatedAt"))).
		Scan(ctx)
	if err != nil {
		return nil, a.fail(op, err)
	}

	summaries, err := a.translationSummaries(ctx, op)
	if err != nil {
		return nil, err
	}
	_, documents := models.SplitPoemDocuments(summaries)

	out := make([]models.Poem, 0, len(rows)+len(documents))
	for i := range rows {
		out = append(out, rows[i].toPoem())
	}
	return append(out, documents...), nil
}

func (a *Adapter) GetPoem(ctx context.Context, id string) (models.Poem, error) {
	const op = "get poem"

	var row poemRow
	err := a.db.NewSelect().
		Model(&row).
		Relation("Comments", newestComments).
		Where("? = ?", bun.Ident(PoemFields.Native("ID")), id).
		Scan(ctx)
	if err != nil {
		return models.Poem{}, a.fail(op, err)
	}
	return row.toPoem(), nil
}

func (a *Adapter) CreatePoem(ctx context.Context, in models.PoemInput) (models.Poem, error) {
	const op = "create poem"
	if err := in.Validate(); err != nil {
		return models.Poem{}, a.invalid(op, err)
	}
	in = in.Normalized()

	row := poemRow{
		ID:             uuid.NewString(),
		Title:          in.Title,
		ContentEnglish: in.ContentEnglish,
		ContentGreek:   in.ContentGreek,
		CreatedAt:      now(),
	}
	if _, err := a.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return models.Poem{}, a.fail(op, err)
	}
	return row.toPoem(), nil
}

func (a *Adapter) UpdatePoem(ctx context.Context, id string, in models.PoemInput) (models.Poem, error) {
	const op = "update poem"
	if err := in.Validate(); err != nil {
		return models.Poem{}, a.invalid(op, err)
	}
	in = in.Normalized()

	var row poemRow
	err := a.db.NewSelect().
		Model(&row).
		Where("? = ?", bun.Ident(PoemFields.Native("ID")), id).
		Scan(ctx)
	if err != nil {
		return models.Poem{}, a.fail(op, err)
	}

	updated := now()
	row.Title = in.Title
	row.ContentEnglish = in.ContentEnglish
	row.ContentGreek = in.ContentGreek
	row.UpdatedAt = &updated

	cols := append(PoemFields.Columns("Title", "ContentEnglish", "ContentGreek"), "updated_at")
	if _, err := a.db.NewUpdate().Model(&row).Column(cols...).WherePK().Exec(ctx); err != nil {
		return models.Poem{}, a.fail(op, err)
	}
	return a.GetPoem(ctx, id)
}

// DeletePoem removes the poem and its comments together.
func (a *Adapter) DeletePoem(ctx context.Context, id string) error {
	const op = "delete poem"

	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*commentRow)(nil)).
			Where("? = ?", bun.Ident(CommentFields.Native("PoemID")), id).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*poemRow)(nil)).
			Where("? = ?", bun.Ident(PoemFields.Native("ID")), id).
			Exec(ctx)
		if err != nil {
			return err
		}
		return affected(op, res)
	})
	return a.fail(op, err)
}

// LikePoem increments the counter in one statement and returns the new value.
func (a *Adapter) LikePoem(ctx context.Context, id string) (int, error) {
	const op = "like poem"

	likes := PoemFields.Native("Likes")
	count := -1
	err := a.db.NewRaw(
		"UPDATE ? SET ? = ? + 1 WHERE ? = ? RETURNING ?",
		bun.Ident("poems"), bun.Ident(likes), bun.Ident(likes),
		bun.Ident(PoemFields.Native("ID")), id, bun.Ident(likes),
	).Scan(ctx, &count)
	if err != nil {
		return 0, a.fail(op, err)
	}
	if count < 0 {
		return 0, notFound(op)
	}
	return count, nil
}

func (a *Adapter) AddComment(ctx context.Context, poemID string, in models.CommentInput) (models.Comment, error) {
	const op = "add comment"
	if err := in.Validate(); err != nil {
		return models.Comment{}, a.invalid(op, err)
	}

	exists, err := a.db.NewSelect().
		Model((*poemRow)(nil)).
		Where("? = ?", bun.Ident(PoemFields.Native("ID")), poemID).
		Exists(ctx)
	if err != nil {
		return models.Comment{}, a.fail(op, err)
	}
	if !exists {
		return models.Comment{}, notFound(op)
	}

	row := commentRow{
		ID:        uuid.NewString(),
		PoemID:    poemID,
		Author:    in.Author,
		Text:      in.Text,
		CreatedAt: now(),
	}
	if _, err := a.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return models.Comment{}, a.fail(op, err)
	}
	return row.toComment(), nil
}

func (a *Adapter) DeleteComment(ctx context.Context, poemID, commentID string) error {
	const op = "delete comment"

	res, err := a.db.NewDelete().
		Model((*commentRow)(nil)).
		Where("? = ?", bun.Ident(CommentFields.Native("ID")), commentID).
		Where("? = ?", bun.Ident(CommentFields.Native("PoemID")), poemID).
		Exec(ctx)
	if err != nil {
		return a.fail(op, err)
	}
	return affected(op, res)
}
