package backend

import (
	"fmt"
	"time"

	"marquee/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// HTTP specific
	APIBaseURL     string
	GatewayTimeout time.Duration

	// SQLite specific
	SQLiteDBPath string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.GatewayBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.GatewayBackend)
	}

	return Config{
		Type:           backendType,
		APIBaseURL:     appConfig.APIBaseURL,
		GatewayTimeout: appConfig.GatewayTimeout,
		SQLiteDBPath:   appConfig.SQLiteDBPath,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case HTTPBackend:
		if c.APIBaseURL == "" {
			return fmt.Errorf("API base URL is required for http backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// No additional configuration needed.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{HTTPBackend, SQLiteBackend, MemoryBackend}
}
