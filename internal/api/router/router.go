package router

import (
	"github.com/gin-gonic/gin"

	"github.com/socialgrab/downorc/internal/api/handlers"
	"github.com/socialgrab/downorc/internal/api/middleware"
	"github.com/socialgrab/downorc/internal/config"
)

// Router is the narrowed ambient HTTP surface (§2): health/ready/live
// plus the single ingress webhook the messenger posts chat updates to
// (§6). Every Admin REST/CRUD/auth group the teacher's router carried
// is out of scope per spec.md §1.
type Router struct {
	engine *gin.Engine
	config *config.Config
}

func NewRouter(cfg *config.Config, healthHandler *handlers.HealthHandler, webhookHandler *handlers.WebhookHandler) *Router {
	if cfg.Server.Host == "0.0.0.0" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORSMiddleware(&cfg.CORS))
	engine.Use(middleware.CorrelationIDMiddleware())

	health := engine.Group("/")
	{
		health.GET("/health", healthHandler.Health)
		health.GET("/ready", healthHandler.Readiness)
		health.GET("/live", healthHandler.Liveness)
	}

	ingress := engine.Group("/api/v1/ingress")
	ingress.Use(middleware.RateLimitMiddleware(&cfg.API))
	{
		ingress.POST("/message", webhookHandler.Ingress)
	}

	return &Router{engine: engine, config: cfg}
}

func (r *Router) Start() error {
	addr := r.config.Server.Host + ":" + r.config.Server.Port
	return r.engine.Run(addr)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
