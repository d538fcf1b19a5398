package sync

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const transportWS = "websocket"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsSubscriber sends one text message per event.
type wsSubscriber struct {
	conn *websocket.Conn
}

func (wsSubscriber) transport() string { return transportWS }

func (s wsSubscriber) deliver(frame []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s wsSubscriber) close() error { return s.conn.Close() }

// WSHandler upgrades the request and keeps the client subscribed until it
// disconnects. Incoming messages are read only to notice the disconnect.
func WSHandler(hub *Hub) gin.HandlerFunc {
	log := slog.Default().With("component", "ws")
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug("upgrade failed", "remote", c.Request.RemoteAddr, "error", err)
			return
		}

		sub := wsSubscriber{conn: conn}
		if err := hub.attach(sub); err != nil {
			log.Warn("greeting failed", "remote", c.Request.RemoteAddr, "error", err)
			return
		}
		log.Info("client connected", "remote", c.Request.RemoteAddr)
		defer func() {
			hub.detach(sub)
			log.Info("client disconnected", "remote", c.Request.RemoteAddr)
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
