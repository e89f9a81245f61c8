package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/utils"
)

// CORSMiddleware gates the narrowed ambient HTTP surface (health +
// webhook ingress) the same way the teacher's full REST API does.
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		method := c.Request.Method

		utils.LogDebug(c.Request.Context(), "CORS request", utils.Fields{
			"origin":  origin,
			"method":  method,
			"profile": cfg.Profile,
		})

		if method == "OPTIONS" {
			handlePreflightRequest(c, cfg, origin)
			return
		}

		handleActualRequest(c, cfg, origin)
		c.Next()
	}
}

func handlePreflightRequest(c *gin.Context, cfg *config.CORSConfig, origin string) {
	if !isOriginAllowed(origin, cfg.AllowedOrigins) {
		c.AbortWithStatus(403)
		return
	}

	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
	c.Header("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))

	if cfg.AllowCredentials {
		c.Header("Access-Control-Allow-Credentials", "true")
	}
	if cfg.MaxAge > 0 {
		c.Header("Access-Control-Max-Age", fmt.Sprintf("%d", cfg.MaxAge))
	}

	c.AbortWithStatus(204)
}

func handleActualRequest(c *gin.Context, cfg *config.CORSConfig, origin string) {
	if !isOriginAllowed(origin, cfg.AllowedOrigins) {
		return
	}

	c.Header("Access-Control-Allow-Origin", origin)
	if len(cfg.ExposedHeaders) > 0 {
		c.Header("Access-Control-Expose-Headers", strings.Join(cfg.ExposedHeaders, ", "))
	}
	if cfg.AllowCredentials {
		c.Header("Access-Control-Allow-Credentials", "true")
	}
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		if matchOrigin(origin, allowed) {
			return true
		}
	}
	return false
}

func matchOrigin(origin, pattern string) bool {
	if origin == pattern || pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		domain := pattern[2:]
		return strings.HasSuffix(origin, "."+domain) || origin == domain
	}
	return false
}
