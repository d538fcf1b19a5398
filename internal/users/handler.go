// Package users serves the admin-only user management routes.
package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poetryhub/internal/backend"
	"poetryhub/internal/httperr"
	"poetryhub/pkg/models"
)

type Handler struct {
	Service backend.Service
}

func NewHandler(svc backend.Service) *Handler {
	return &Handler{Service: svc}
}

// RegisterRoutes expects rg to already require an admin token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.list)
	rg.DELETE("/user/:id", h.remove)
	rg.PUT("/user/:id/make-admin", h.setAdmin(true))
	rg.PUT("/user/:id/remove-admin", h.setAdmin(false))
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Service.ListUsers(c.Request.Context())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if items == nil {
		items = []models.User{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Service.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "User deleted"})
}

func (h *Handler) setAdmin(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.Service.SetAdmin(c.Request.Context(), c.Param("id"), admin); err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "User updated", "isAdmin": admin})
	}
}
