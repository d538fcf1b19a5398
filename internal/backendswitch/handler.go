// Package backendswitch exposes the dispatcher's selection over HTTP.
package backendswitch

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poetryhub/internal/backend"
	"poetryhub/internal/dispatch"
	"poetryhub/internal/httperr"
)

// State is the body of GET and PUT /backend.
type State struct {
	Backend    backend.ID          `json:"backend"`
	Generation uint64              `json:"generation"`
	Ready      map[backend.ID]bool `json:"ready"`
}

type useReq struct {
	Backend string `json:"backend"`
}

type Handler struct {
	Dispatcher *dispatch.Dispatcher
}

func NewHandler(d *dispatch.Dispatcher) *Handler {
	return &Handler{Dispatcher: d}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("/backend", h.show)
	rg.PUT("/backend", admin, h.use)
}

func (h *Handler) state() State {
	s := State{
		Backend:    h.Dispatcher.Current(),
		Generation: h.Dispatcher.Generation(),
		Ready:      make(map[backend.ID]bool, len(backend.IDs)),
	}
	for _, id := range backend.IDs {
		s.Ready[id] = h.Dispatcher.Ready(id)
	}
	return s
}

func (h *Handler) show(c *gin.Context) {
	c.JSON(http.StatusOK, h.state())
}

func (h *Handler) use(c *gin.Context) {
	var req useReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid json")
		return
	}
	id, err := backend.ParseID(req.Backend)
	if err != nil {
		httperr.BadRequest(c, err.Error())
		return
	}
	if err := h.Dispatcher.Use(c.Request.Context(), id); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state())
}
