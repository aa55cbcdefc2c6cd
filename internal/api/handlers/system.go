package handlers

import (
	"net/http"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/api/response"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// Health reports the configured providers and whether a fundamentals token is present.
// A degraded engine still answers 200; only the status field changes.
//
// Endpoint: GET /api/system/health
// Response: 200 OK with model.HealthStatus
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.systemService.CheckHealth())
}

// Version handles GET requests to retrieve version information and feature availability.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with model.VersionInfo
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.systemService.CheckVersion())
}
