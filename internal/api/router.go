// Package api assembles the HTTP route set served by api-server. The same
// routes are what the remote adapter speaks, so one instance can serve as
// another's remote backend.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"poetryhub/internal/auth"
	"poetryhub/internal/backendswitch"
	"poetryhub/internal/dispatch"
	"poetryhub/internal/poems"
	synchub "poetryhub/internal/sync"
	"poetryhub/internal/translations"
	"poetryhub/internal/users"
)

type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Tokens     auth.TokenService
	Hub        *synchub.Hub // optional
	DB         *sql.DB      // optional, pinged by /ready
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	admin := auth.RequireAdmin(d.Tokens)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": d.Dispatcher.Current()})
	})
	router.GET("/ready", func(c *gin.Context) {
		body := gin.H{"status": "ready", "backend": d.Dispatcher.Current()}
		if d.Hub != nil {
			stats := d.Hub.Stats()
			body["tcp_clients"] = stats.TCPClients
			body["ws_clients"] = stats.WSClients
		}
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.PingContext(ctx); err != nil {
				body["status"] = "not_ready"
				body["db_error"] = err.Error()
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
			body["db"] = "ok"
		}
		c.JSON(http.StatusOK, body)
	})

	if d.Hub != nil {
		router.GET("/ws", synchub.WSHandler(d.Hub))
	}

	root := router.Group("")
	auth.NewHandler(d.Dispatcher).RegisterRoutes(root)
	backendswitch.NewHandler(d.Dispatcher).RegisterRoutes(root, admin)
	poems.NewHandler(d.Dispatcher, d.Hub).RegisterRoutes(router.Group("/poetry"), admin)
	translations.NewHandler(d.Dispatcher).RegisterRoutes(router.Group("/translations"), admin)
	users.NewHandler(d.Dispatcher).RegisterRoutes(router.Group("", admin))

	protected := router.Group("/me", auth.AuthMiddleware(d.Tokens))
	protected.GET("", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"_id":     claims.UserID,
			"email":   claims.Email,
			"isAdmin": claims.IsAdmin,
		})
	})

	return router
}
