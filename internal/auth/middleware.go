package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

func AuthMiddleware(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens) {
			return
		}
		c.Next()
	}
}

// RequireAdmin authenticates the request and rejects tokens without the
// admin flag.
func RequireAdmin(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens) {
			return
		}
		if !MustGetClaims(c).IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin only", "kind": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens TokenService) bool {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "kind": "unauthorized"})
		c.Abort()
		return false
	}

	raw := strings.TrimSpace(h[len("Bearer "):])
	claims, err := tokens.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "kind": "unauthorized"})
		c.Abort()
		return false
	}

	c.Set(CtxClaimsKey, claims)
	return true
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
