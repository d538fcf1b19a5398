package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"poetryhub/internal/backend"
	"poetryhub/pkg/models"
)

func summaries(all []wireTranslation) []models.TranslationSummary {
	out := make([]models.TranslationSummary, 0, len(all))
	for _, w := range all {
		out = append(out, w.toSummary())
	}
	return out
}

func (c *Client) ListTranslations(ctx context.Context) ([]models.TranslationSummary, error) {
	var all []wireTranslation
	if err := c.doJSON(ctx, "list translations", http.MethodGet, c.endpoint("translations", "all"), nil, &all); err != nil {
		return nil, err
	}
	translations, _ := models.SplitPoemDocuments(summaries(all))
	return translations, nil
}

// GetTranslation reads the metadata and, when it carries no text, the
// document stream. The stream is already in final form. A translation the
// remote cannot stream comes back with neither body.
func (c *Client) GetTranslation(ctx context.Context, id string) (models.Translation, error) {
	const op = "get translation"
	var w wireTranslation
	if err := c.doJSON(ctx, op, http.MethodGet, c.endpoint("translations", "info", id), nil, &w); err != nil {
		return models.Translation{}, err
	}
	t := models.Translation{ID: w.ID, Title: w.Title, CreatedAt: w.CreatedAt.UTC()}
	if t.ID == "" {
		t.ID = id
	}
	if strings.TrimSpace(w.Content) != "" {
		t.Content = w.Content
		return t, nil
	}

	resp, err := c.send(ctx, op, http.MethodGet, c.endpoint("translations", "stream", id), nil, "")
	if err != nil {
		if StatusOf(err) == http.StatusUnprocessableEntity {
			c.log.Warn("translation has no content", "id", id)
			return t, nil
		}
		return models.Translation{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return models.Translation{}, &backend.Error{Kind: backend.KindBackendUnreachable, Backend: backend.Remote, Op: op, Err: err}
	}
	if len(data) == 0 {
		return t, nil
	}

	ct := models.DefaultDocumentType
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mt != "" {
		ct = mt
	}
	if ct == "text/plain" {
		t.Content = string(data)
		return t, nil
	}
	t.Document = &models.Document{Data: data, ContentType: ct}
	return t, nil
}

func (c *Client) CreateTranslation(ctx context.Context, in models.TranslationInput) (models.TranslationSummary, error) {
	const op = "create translation"
	if err := in.Validate(); err != nil {
		return models.TranslationSummary{}, c.invalid(op, err)
	}
	return c.sendTranslation(ctx, op, http.MethodPost, c.endpoint("translations", "upload"), in)
}

func (c *Client) UpdateTranslation(ctx context.Context, id string, in models.TranslationInput) (models.TranslationSummary, error) {
	const op = "update translation"
	if err := in.ValidateUpdate(); err != nil {
		return models.TranslationSummary{}, c.invalid(op, err)
	}
	return c.sendTranslation(ctx, op, http.MethodPut, c.endpoint("translations", "update", id), in)
}

func (c *Client) DeleteTranslation(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete translation", http.MethodDelete, c.endpoint("translations", "delete", id), nil, nil)
}

// sendTranslation posts the multipart form the upload routes read: fields
// title, date and content, and the file pdf.
func (c *Client) sendTranslation(ctx context.Context, op, method, target string, in models.TranslationInput) (models.TranslationSummary, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{{"title", strings.TrimSpace(in.Title)}}
	if !in.Date.IsZero() {
		fields = append(fields, [2]string{"date", in.Date.UTC().Format(time.RFC3339)})
	}
	if strings.TrimSpace(in.Content) != "" {
		fields = append(fields, [2]string{"content", in.Content})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return models.TranslationSummary{}, c.invalid(op, err)
		}
	}

	if in.Document != nil && len(in.Document.Data) > 0 {
		ct := in.Document.ContentType
		if ct == "" {
			ct = models.DefaultDocumentType
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf"; filename=%q`, documentName(in.Title)))
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return models.TranslationSummary{}, c.invalid(op, err)
		}
		if _, err := part.Write(in.Document.Data); err != nil {
			return models.TranslationSummary{}, c.invalid(op, err)
		}
	}
	if err := mw.Close(); err != nil {
		return models.TranslationSummary{}, c.invalid(op, err)
	}

	resp, err := c.send(ctx, op, method, target, &buf, mw.FormDataContentType())
	if err != nil {
		return models.TranslationSummary{}, err
	}
	defer resp.Body.Close()

	var w wireTranslation
	if err := decodeBody(op, resp.Body, &w); err != nil {
		return models.TranslationSummary{}, err
	}
	return w.toSummary(), nil
}

func documentName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(title))
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}
