package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/alerts"
	"fleetops/fleet-portal/fleet-portal-backend/internal/app"
	"fleetops/fleet-portal/fleet-portal-backend/internal/assets"
	"fleetops/fleet-portal/fleet-portal-backend/internal/auth"
	"fleetops/fleet-portal/fleet-portal-backend/internal/dashboard"
	"fleetops/fleet-portal/fleet-portal-backend/internal/documents"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inventory"
	"fleetops/fleet-portal/fleet-portal-backend/internal/logger"
	"fleetops/fleet-portal/fleet-portal-backend/internal/notifications"
	"fleetops/fleet-portal/fleet-portal-backend/internal/reports"
	"fleetops/fleet-portal/fleet-portal-backend/internal/settings"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
)

// NewRouter mounts every module of the portal under /api/v1.
func NewRouter(a *app.App) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(a.Logger), cors(a.Config.Server.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"backend":     a.Config.Persistence.Backend,
			"connections": a.Hub.ConnectionCount(),
			"timestamp":   time.Now(),
		})
	})

	authMW := auth.Middleware(a.Auth)
	adminOnly := auth.RequireRole(auth.RoleAdmin)

	api := router.Group("/api/v1")
	auth.NewHandler(a.Auth, a.Logger).RegisterRoutes(api, authMW)

	protected := api.Group("", authMW)
	{
		inspection.NewHandler(a.Inspections, a.Logger).RegisterRoutes(protected)
		assets.NewHandler(a.Assets, a.Logger).RegisterRoutes(protected, adminOnly)
		inventory.NewHandler(a.Inventory, a.Logger).RegisterRoutes(protected)
		workorders.NewHandler(a.WorkOrders, a.Logger).RegisterRoutes(protected)
		dashboard.NewHandler(a.Aggregator, a.Logger).RegisterRoutes(protected)
		settings.NewHandler(a.Settings, a.Logger).RegisterRoutes(protected)
		documents.NewHandler(a.Documents, a.Logger).RegisterRoutes(protected)
		reports.NewHandler(a.Reports, a.Logger).RegisterRoutes(protected)
		alerts.NewHandler(a.Alerts, a.Logger).RegisterRoutes(protected, adminOnly)
		notifications.NewHandler(a.Hub, a.Logger).RegisterRoutes(protected, adminOnly)
		logger.NewHandler(a.Config.Logging.File, a.Logger).RegisterRoutes(protected, adminOnly)
	}
	return router
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" {
			return
		}
		log.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// cors allows the configured origins, or any origin when none are set.
func cors(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allow := "*"
		if len(allowed) > 0 {
			allow = ""
			for _, o := range allowed {
				if strings.EqualFold(strings.TrimSpace(o), origin) {
					allow = origin
					break
				}
			}
		}
		if allow != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allow)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
			c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Row-Count")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
