package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weddly/wedding-planner/internal/gateway/middleware"
	notification_http "github.com/weddly/wedding-planner/internal/modules/notification/interfaces/http"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/jwt"
)

// RouterConfig holds all the handlers and middleware needed for routing
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleWare
	NotificationHandler *notification_http.NotificationHandler
	AllowedOrigins      string
}

// SetupRoutes creates and configures all application routes
func SetupRoutes(config RouterConfig) http.Handler {
	router := NewRouter()
	auth := config.AuthMiddleware
	h := config.NotificationHandler

	// Health Check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus Metrics Endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Notification Routes
	router.Handle("GET /notifications", auth.RequireAuth(http.HandlerFunc(h.ListNotifications)))
	router.Handle("GET /notifications/unread-count", auth.RequireAuth(http.HandlerFunc(h.UnreadCount)))
	router.Handle("PATCH /notifications/{id}/read", auth.RequireAuth(http.HandlerFunc(h.MarkAsRead)))
	router.Handle("PATCH /notifications/read-all", auth.RequireAuth(http.HandlerFunc(h.MarkAllAsRead)))

	// Live Channel
	router.Handle("GET /notifications/subscribe", auth.RequireAuth(http.HandlerFunc(h.Subscribe)))
	router.Handle("GET /ws", auth.RequireAuth(http.HandlerFunc(h.SubscribeWs)))

	// Admin and service-to-service
	router.Handle("POST /admin/notifications/broadcast", auth.RequireRole(http.HandlerFunc(h.Broadcast), jwt.RoleAdmin))
	router.Handle("POST /internal/notification-events", auth.RequireRole(http.HandlerFunc(h.PublishEvent), jwt.RoleService, jwt.RoleAdmin))

	router.Use(
		middleware.PrometheusMiddleware,
		func(next http.Handler) http.Handler { return middleware.CORSMiddleware(next, config.AllowedOrigins) },
	)
	return router.Handler()
}
