package notifications

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/auth"
	"fleetops/fleet-portal/fleet-portal-backend/internal/notifications/websocket"
)

type Handler struct {
	manager *websocket.Manager
	logger  *zap.Logger
}

func NewHandler(manager *websocket.Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	rg.GET("/ws", h.Connect)
	rg.GET("/notifications/connections", adminOnly, h.ListConnections)
}

// Connect upgrades to a websocket for the signed-in user.
func (h *Handler) Connect(c *gin.Context) {
	session, ok := auth.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if _, err := h.manager.HandleConnection(c.Writer, c.Request, session.UserID); err != nil {
		// The upgrader has already written the error response.
		h.logger.Warn("WebSocket upgrade failed", zap.String("user_id", session.UserID), zap.Error(err))
	}
}

func (h *Handler) ListConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count":       h.manager.ConnectionCount(),
		"connections": h.manager.Connections(),
	})
}
