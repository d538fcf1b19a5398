// Package poems serves the /poetry routes over the active backend.
package poems

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"poetryhub/internal/backend"
	"poetryhub/internal/httperr"
	"poetryhub/internal/sync"
	"poetryhub/pkg/models"
)

type Handler struct {
	Service backend.Service
	Hub     *sync.Hub
}

func NewHandler(svc backend.Service, hub *sync.Hub) *Handler {
	return &Handler{Service: svc, Hub: hub}
}

// RegisterRoutes mounts the poem routes on rg. Writes other than likes and
// comments go through admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("", h.list)        // GET /poetry
	rg.GET("/:id", h.getByID) // GET /poetry/:id
	rg.POST("/:id/like", h.like)
	rg.POST("/:id/comments", h.addComment)

	rg.POST("", admin, h.create)
	rg.PUT("/:id", admin, h.update)
	rg.DELETE("/:id", admin, h.remove)
	rg.DELETE("/:id/comments/:cid", admin, h.removeComment)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Service.ListPoems(c.Request.Context())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if items == nil {
		items = []models.Poem{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getByID(c *gin.Context) {
	p, err := h.Service.GetPoem(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) create(c *gin.Context) {
	var in models.PoemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httperr.BadRequest(c, "invalid json")
		return
	}
	p, err := h.Service.CreatePoem(c.Request.Context(), in)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) update(c *gin.Context) {
	var in models.PoemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httperr.BadRequest(c, "invalid json")
		return
	}
	p, err := h.Service.UpdatePoem(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Service.DeletePoem(c.Request.Context(), c.Param("id")); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Poem deleted"})
}

func (h *Handler) like(c *gin.Context) {
	id := c.Param("id")
	n, err := h.Service.LikePoem(c.Request.Context(), id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	ev := sync.NewPoemEvent(sync.EventPoemLiked, h.Service.ID(), id)
	ev.Likes = n
	h.Hub.Publish(ev)

	c.JSON(http.StatusOK, gin.H{"likes": n})
}

func (h *Handler) addComment(c *gin.Context) {
	var in models.CommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httperr.BadRequest(c, "invalid json")
		return
	}
	id := c.Param("id")
	cm, err := h.Service.AddComment(c.Request.Context(), id, in)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	ev := sync.NewPoemEvent(sync.EventCommentAdded, h.Service.ID(), id)
	ev.CommentID = cm.ID
	ev.Author = cm.Author
	h.Hub.Publish(ev)

	c.JSON(http.StatusCreated, cm)
}

func (h *Handler) removeComment(c *gin.Context) {
	id, cid := c.Param("id"), strings.TrimSpace(c.Param("cid"))
	if err := h.Service.DeleteComment(c.Request.Context(), id, cid); err != nil {
		httperr.Respond(c, err)
		return
	}

	ev := sync.NewPoemEvent(sync.EventCommentDeleted, h.Service.ID(), id)
	ev.CommentID = cid
	h.Hub.Publish(ev)

	c.JSON(http.StatusOK, gin.H{"msg": "Comment deleted"})
}
