// Package translations serves the /translations routes. Listings and info
// never carry document bytes; those come from the stream route.
package translations

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"poetryhub/internal/backend"
	"poetryhub/internal/httperr"
	"poetryhub/pkg/models"
)

// MaxDocumentSize bounds uploaded documents.
const MaxDocumentSize = 32 << 20

// Info is the body of GET /translations/info/:id.
type Info struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"createdAt"`
	Content     string    `json:"content,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	HasDocument bool      `json:"hasDocument"`
}

type Handler struct {
	Service backend.Service
}

func NewHandler(svc backend.Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("/all", h.list)
	rg.GET("/info/:id", h.info)
	rg.GET("/stream/:id", h.stream)

	rg.POST("/upload", admin, h.upload)
	rg.PUT("/update/:id", admin, h.update)
	rg.DELETE("/delete/:id", admin, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Service.ListTranslations(c.Request.Context())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if items == nil {
		items = []models.TranslationSummary{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) info(c *gin.Context) {
	t, err := h.Service.GetTranslation(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	out := Info{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt, Content: t.Content}
	if t.State() == models.StateDocument {
		out.HasDocument = true
		out.ContentType = t.Document.ContentType
		out.Content = ""
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) stream(c *gin.Context) {
	t, err := h.Service.GetTranslation(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	switch t.State() {
	case models.StateDocument:
		ct := t.Document.ContentType
		if ct == "" {
			ct = models.DefaultDocumentType
		}
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", t.ID+".pdf"))
		c.Data(http.StatusOK, ct, t.Document.Data)
	case models.StateText:
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(t.Content))
	default:
		httperr.Respond(c, backend.Errorf(backend.KindDecodeFailed, h.Service.ID(), "stream translation", "no content available"))
	}
}

func (h *Handler) upload(c *gin.Context) {
	in, ok := bindForm(c)
	if !ok {
		return
	}
	s, err := h.Service.CreateTranslation(c.Request.Context(), in)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) update(c *gin.Context) {
	in, ok := bindForm(c)
	if !ok {
		return
	}
	s, err := h.Service.UpdateTranslation(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Service.DeleteTranslation(c.Request.Context(), c.Param("id")); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Translation deleted"})
}

// bindForm reads the multipart fields title, date, content and the
// optional file pdf.
func bindForm(c *gin.Context) (models.TranslationInput, bool) {
	in := models.TranslationInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
	}

	if raw := strings.TrimSpace(c.PostForm("date")); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			httperr.BadRequest(c, "date must be YYYY-MM-DD or RFC 3339")
			return in, false
		}
		in.Date = d
	}

	fh, err := c.FormFile("pdf")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		httperr.BadRequest(c, "invalid multipart body")
		return in, false
	default:
		if fh.Size > MaxDocumentSize {
			httperr.BadRequest(c, "document too large")
			return in, false
		}
		f, err := fh.Open()
		if err != nil {
			httperr.BadRequest(c, "unreadable document")
			return in, false
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, MaxDocumentSize+1))
		if err != nil || len(data) > MaxDocumentSize {
			httperr.BadRequest(c, "unreadable document")
			return in, false
		}
		ct := fh.Header.Get("Content-Type")
		if ct == "" || ct == "application/octet-stream" {
			ct = models.DefaultDocumentType
		}
		in.Document = &models.Document{Data: data, ContentType: ct}
	}
	return in, true
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
