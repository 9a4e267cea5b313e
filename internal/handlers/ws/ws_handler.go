// internal/handlers/ws/ws_handler.go
package ws

import (
	"net/http"

	wsfeed "rebill-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The feed carries no sensitive data, any origin may subscribe.
		return true
	},
}

type WebSocketHandler struct {
	hub    *wsfeed.Hub
	logger *zap.Logger
}

func NewWebSocketHandler(hub *wsfeed.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// HandleConnection upgrades the request and subscribes the client to the
// billing run progress feed.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()))
		return
	}

	wsfeed.NewClient(h.hub, conn).Start()
}
