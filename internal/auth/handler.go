package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poetryhub/internal/backend"
	"poetryhub/internal/httperr"
	"poetryhub/pkg/models"
)

// Handler serves sign-in and sign-up against whichever backend is active.
// Credential checks happen inside the backend, never here.
type Handler struct {
	Service backend.Service
}

func NewHandler(svc backend.Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.login)
	rg.POST("/signup", h.signup)
}

func (h *Handler) signup(c *gin.Context) {
	var req models.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid json")
		return
	}

	u, err := h.Service.SignUp(c.Request.Context(), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"msg": "User created", "user": u})
}

func (h *Handler) login(c *gin.Context) {
	var req models.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid json")
		return
	}

	session, err := h.Service.SignIn(c.Request.Context(), req)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
