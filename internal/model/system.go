package model

// VersionInfo contains version and feature information for the application.
type VersionInfo struct {
	AppVersion string          `json:"app_version"`
	Features   map[string]bool `json:"features"`
}

// ProviderInfo describes one configured upstream provider.
type ProviderInfo struct {
	Name     string   `json:"name"`
	Datasets []string `json:"datasets"`
	Enabled  bool     `json:"enabled"`
	Reason   string   `json:"reason,omitempty"` // Why a provider is disabled
}

// HealthStatus is the liveness report of the composition engine.
type HealthStatus struct {
	Status       string         `json:"status"`
	TokenPresent bool           `json:"tokenPresent"`
	Providers    []ProviderInfo `json:"providers"`
}
