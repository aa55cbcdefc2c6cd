package service

import (
	"github.com/ndewijer/Adjusted-Price-Engine/internal/model"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/version"
)

// Health states.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// SystemService reports the engine configuration
type SystemService struct {
	providers    []model.ProviderInfo
	tokenPresent bool
}

// NewSystemService creates a new SystemService
func NewSystemService(providers []model.ProviderInfo, tokenPresent bool) *SystemService {
	return &SystemService{
		providers:    providers,
		tokenPresent: tokenPresent,
	}
}

// CheckHealth reports healthy while at least one price provider is enabled.
// Missing optional providers only degrade the status.
func (s *SystemService) CheckHealth() model.HealthStatus {
	status := model.HealthStatus{
		Status:       HealthHealthy,
		TokenPresent: s.tokenPresent,
		Providers:    append([]model.ProviderInfo{}, s.providers...),
	}
	for _, p := range s.providers {
		if !p.Enabled {
			status.Status = HealthDegraded
			break
		}
	}
	return status
}

// CheckVersion returns the build version and the optional features that are active.
func (s *SystemService) CheckVersion() model.VersionInfo {
	features := map[string]bool{
		"fundamentals": s.tokenPresent,
	}
	for _, p := range s.providers {
		features[p.Name] = p.Enabled
	}
	return model.VersionInfo{
		AppVersion: version.Version,
		Features:   features,
	}
}
