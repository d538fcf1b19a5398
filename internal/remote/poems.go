package remote

import (
	"context"
	"net/http"

	"poetryhub/internal/backend"
	"poetryhub/pkg/models"
)

const opSignUp = "sign up"

func (c *Client) invalid(op string, err error) error {
	return &backend.Error{Kind: backend.KindValidationFailed, Backend: backend.Remote, Op: op, Msg: err.Error(), Err: err}
}

// ListPoems lists the remote poems followed by the poem documents found in
// the translation listing. Entries the remote already lists as documents are
// not repeated.
func (c *Client) ListPoems(ctx context.Context) ([]models.Poem, error) {
	const op = "list poems"
	var poems []wirePoem
	if err := c.doJSON(ctx, op, http.MethodGet, c.endpoint("poetry"), nil, &poems); err != nil {
		return nil, err
	}
	var all []wireTranslation
	if err := c.doJSON(ctx, op, http.MethodGet, c.endpoint("translations", "all"), nil, &all); err != nil {
		return nil, err
	}

	out := make([]models.Poem, 0, len(poems))
	seen := make(map[string]bool)
	for _, w := range poems {
		p := w.toPoem()
		if p.IsDocument() {
			seen[p.DocumentID] = true
		}
		out = append(out, p)
	}

	_, docs := models.SplitPoemDocuments(summaries(all))
	for _, d := range docs {
		if !seen[d.DocumentID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (c *Client) GetPoem(ctx context.Context, id string) (models.Poem, error) {
	const op = "get poem"
	var w wirePoem
	if err := c.doJSON(ctx, op, http.MethodGet, c.endpoint("poetry", id), nil, &w); err != nil {
		return models.Poem{}, err
	}
	return w.toPoem(), nil
}

func (c *Client) CreatePoem(ctx context.Context, in models.PoemInput) (models.Poem, error) {
	const op = "create poem"
	if err := in.Validate(); err != nil {
		return models.Poem{}, c.invalid(op, err)
	}
	var w wirePoem
	if err := c.doJSON(ctx, op, http.MethodPost, c.endpoint("poetry"), in.Normalized(), &w); err != nil {
		return models.Poem{}, err
	}
	return w.toPoem(), nil
}

func (c *Client) UpdatePoem(ctx context.Context, id string, in models.PoemInput) (models.Poem, error) {
	const op = "update poem"
	if err := in.Validate(); err != nil {
		return models.Poem{}, c.invalid(op, err)
	}
	var w wirePoem
	if err := c.doJSON(ctx, op, http.MethodPut, c.endpoint("poetry", id), in.Normalized(), &w); err != nil {
		return models.Poem{}, err
	}
	return w.toPoem(), nil
}

func (c *Client) DeletePoem(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete poem", http.MethodDelete, c.endpoint("poetry", id), nil, nil)
}

func (c *Client) LikePoem(ctx context.Context, id string) (int, error) {
	var w wireLikes
	if err := c.doJSON(ctx, "like poem", http.MethodPost, c.endpoint("poetry", id, "like"), nil, &w); err != nil {
		return 0, err
	}
	return max(w.Likes, 0), nil
}

func (c *Client) AddComment(ctx context.Context, poemID string, in models.CommentInput) (models.Comment, error) {
	const op = "add comment"
	if err := in.Validate(); err != nil {
		return models.Comment{}, c.invalid(op, err)
	}
	var w wireComment
	if err := c.doJSON(ctx, op, http.MethodPost, c.endpoint("poetry", poemID, "comments"), in, &w); err != nil {
		return models.Comment{}, err
	}
	cm := w.toComment()
	if cm.PoemID == "" {
		cm.PoemID = poemID
	}
	return cm, nil
}

func (c *Client) DeleteComment(ctx context.Context, poemID, commentID string) error {
	return c.doJSON(ctx, "delete comment", http.MethodDelete, c.endpoint("poetry", poemID, "comments", commentID), nil, nil)
}
