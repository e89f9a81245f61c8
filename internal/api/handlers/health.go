package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socialgrab/downorc/internal/database"
	"github.com/socialgrab/downorc/internal/kv"
	"github.com/socialgrab/downorc/internal/services/storage"
	"github.com/socialgrab/downorc/internal/utils"
)

type HealthHandler struct {
	db      *database.PostgresDB
	kv      *kv.Store
	storage storage.StorageInterface
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Version   string                   `json:"version"`
	Services  map[string]ServiceHealth `json:"services"`
}

type ServiceHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

func NewHealthHandler(db *database.PostgresDB, store *kv.Store, objectStorage storage.StorageInterface) *HealthHandler {
	return &HealthHandler{
		db:      db,
		kv:      store,
		storage: objectStorage,
	}
}

// Health reports the aggregate status of every backing dependency
// (§2 ambient HTTP surface).
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   "1.0.0",
		Services:  make(map[string]ServiceHealth),
	}

	response.Services["postgresql"] = h.checkPostgreSQL(ctx)
	response.Services["redis"] = h.checkRedis(ctx)
	response.Services["s3"] = h.checkS3(ctx)

	overallHealthy := true
	for _, service := range response.Services {
		if service.Status != "healthy" {
			overallHealthy = false
			break
		}
	}

	if !overallHealthy {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Readiness reports whether the orchestrator can accept new requests.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx := c.Request.Context()

	ready := true
	checks := make(map[string]interface{})

	if err := h.db.Ping(ctx); err != nil {
		ready = false
		checks["postgresql"] = map[string]interface{}{"ready": false, "error": err.Error()}
	} else {
		checks["postgresql"] = map[string]interface{}{"ready": true}
	}

	if err := h.kv.Ping(ctx); err != nil {
		ready = false
		checks["redis"] = map[string]interface{}{"ready": false, "error": err.Error()}
	} else {
		checks["redis"] = map[string]interface{}{"ready": true}
	}

	response := map[string]interface{}{
		"ready":     ready,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	if ready {
		c.JSON(http.StatusOK, response)
	} else {
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

// Liveness is a pure process-alive check.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"alive":     true,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *HealthHandler) checkPostgreSQL(ctx context.Context) ServiceHealth {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := h.db.Ping(checkCtx)
	responseTime := time.Since(start).String()

	if err != nil {
		utils.LogError(ctx, "PostgreSQL health check failed", err)
		return ServiceHealth{Status: "unhealthy", ResponseTime: responseTime, Error: err.Error()}
	}
	return ServiceHealth{Status: "healthy", ResponseTime: responseTime}
}

func (h *HealthHandler) checkRedis(ctx context.Context) ServiceHealth {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := h.kv.Ping(checkCtx)
	responseTime := time.Since(start).String()

	if err != nil {
		utils.LogError(ctx, "Redis health check failed", err)
		return ServiceHealth{Status: "unhealthy", ResponseTime: responseTime, Error: err.Error()}
	}
	return ServiceHealth{Status: "healthy", ResponseTime: responseTime}
}

func (h *HealthHandler) checkS3(ctx context.Context) ServiceHealth {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := h.storage.Exists(checkCtx, "health-check-test")
	responseTime := time.Since(start).String()

	if err != nil {
		utils.LogError(ctx, "S3 health check failed", err)
		return ServiceHealth{Status: "unhealthy", ResponseTime: responseTime, Error: err.Error()}
	}
	return ServiceHealth{Status: "healthy", ResponseTime: responseTime}
}
