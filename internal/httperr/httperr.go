// Package httperr renders backend errors as JSON responses.
package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poetryhub/internal/backend"
)

// Status maps an error kind to the HTTP status the route set uses.
func Status(k backend.Kind) int {
	switch k {
	case backend.KindNotFound:
		return http.StatusNotFound
	case backend.KindValidationFailed:
		return http.StatusBadRequest
	case backend.KindUnauthorized:
		return http.StatusUnauthorized
	case backend.KindConflict:
		return http.StatusConflict
	case backend.KindDecodeFailed:
		return http.StatusUnprocessableEntity
	case backend.KindBackendUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as {"error", "kind", "backend"} and aborts the chain.
func Respond(c *gin.Context, err error) {
	kind := backend.KindOf(err)
	body := gin.H{"error": err.Error(), "kind": string(kind)}
	if id := backend.BackendOf(err); id != "" {
		body["backend"] = string(id)
	}
	if kind == "" {
		body["error"] = "internal error"
	}
	c.AbortWithStatusJSON(Status(kind), body)
}

// BadRequest is for malformed requests that never reached a backend.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": string(backend.KindValidationFailed)})
}
