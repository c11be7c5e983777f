package controller

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"github.com/gin-gonic/gin"
	apperrors "github.com/opas/opas-backend/internal/errors"
	"github.com/opas/opas-backend/internal/middleware"
	"github.com/opas/opas-backend/internal/websocket"
)

// WebSocketController upgrades authenticated clients onto the notification
// push socket.
type WebSocketController struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

func NewWebSocketController(hub *websocket.Hub, allowedOrigins []string) *WebSocketController {
	return &WebSocketController{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Connect upgrades the request and registers the client with the hub
// GET /api/v1/ws/notifications
func (ctrl *WebSocketController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "Authentication required")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	client := websocket.NewClient(ctrl.hub, conn, userID)
	ctrl.hub.Register(client)

	log.Info("Notification socket connected", map[string]interface{}{
		"user_id": userID,
	})

	go client.WritePump()
	go client.ReadPump()
}
