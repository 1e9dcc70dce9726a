package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/metrics"
)

// ChatRoute is the shop assistant query endpoint.
const ChatRoute = "/api/chat-shop-assistant"

// RouterConfig holds the routing settings.
type RouterConfig struct {
	AllowedOrigins []string
	AssetsRoute    string // e.g. /downloaded_images
	Assets         *StaticAssets
}

// NewRouter wires middleware and routes for the server.
func NewRouter(cfg RouterConfig, server *Server, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware(cfg.AssetsRoute))

	r.Post(ChatRoute, server.ChatShopAssistant)
	r.Get("/health", server.HealthCheck)
	r.Get("/metrics", server.Metrics)

	if cfg.Assets != nil && cfg.AssetsRoute != "" {
		assets := cfg.Assets.Handler(cfg.AssetsRoute)
		r.Method(http.MethodGet, cfg.AssetsRoute+"/*", assets)
		r.Method(http.MethodHead, cfg.AssetsRoute+"/*", assets)
	}

	return r
}
