package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medstock/backend/internal/infrastructure/logger"
	"github.com/medstock/backend/internal/interfaces/http/dto"
	"github.com/medstock/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	driver    string
	checker   HealthChecker
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. checker may be nil.
func NewSystemHandler(name, version, driver string, checker HealthChecker) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		driver:    driver,
		checker:   checker,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name          string `json:"name" example:"medstock"`
	Version       string `json:"version" example:"1.0.0"`
	GoVersion     string `json:"go_version" example:"go1.25.5"`
	StorageDriver string `json:"storage_driver" example:"memory"`
	Uptime        string `json:"uptime" example:"1h30m45s"`
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// HealthResponse reports process and store health
type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	Storage string `json:"storage" example:"up"`
}

// RegisterRoutes mounts /system/ping and /system/info
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("system", "/system").
		GET("/ping", h.Ping).
		GET("/info", h.GetSystemInfo).
		RegisterRoutes(rg)
}

// Health godoc
// @ID           health
// @Summary      Liveness and storage check
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.checker.Ping(ctx); err != nil {
			logger.L(c.Request.Context()).Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, dto.Response{
				Success: false,
				Data:    HealthResponse{Status: "unhealthy", Storage: "down"},
				Error:   &dto.ErrorInfo{Code: dto.ErrCodeStorage, Message: err.Error()},
			})
			return
		}
	}
	h.Success(c, HealthResponse{Status: "healthy", Storage: "up"})
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:          h.name,
		Version:       h.version,
		GoVersion:     runtime.Version(),
		StorageDriver: h.driver,
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
