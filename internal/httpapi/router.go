package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"hrattendance/internal/auth"
	"hrattendance/internal/httpmiddleware"
)

// HealthCheck reports the reachability of named dependencies.
type HealthCheck func(ctx context.Context) map[string]bool

// RouterConfig carries the cross-cutting pieces of the engine.
type RouterConfig struct {
	Logger      *slog.Logger
	Limiter     *limiter.Limiter
	CORSOrigins []string
	SigningKey  string
	Issuer      string
	Health      HealthCheck
}

// NewRouter builds the gin engine with middleware, public probes and the
// authenticated /v1 API.
func NewRouter(cfg RouterConfig, h *Handler) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, "/healthz", "/metrics"))
	r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	if cfg.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(cfg.Limiter))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		deps := map[string]bool{}
		if cfg.Health != nil {
			deps = cfg.Health(c.Request.Context())
		}
		status, label := http.StatusOK, "ok"
		for _, up := range deps {
			if !up {
				status, label = http.StatusServiceUnavailable, "degraded"
			}
		}
		c.JSON(status, gin.H{"status": label, "deps": deps})
	})

	v1 := r.Group("/v1", auth.Authenticate(cfg.SigningKey, cfg.Issuer))
	h.Register(v1)
	return r
}
