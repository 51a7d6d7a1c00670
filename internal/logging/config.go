package logging

import (
	"github.com/clementcyberknight/db-stress-test/internal/config"
)

// DevelopmentLoggingConfig returns a verbose human-readable configuration
func DevelopmentLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:  "debug",
		Format: "text",
		Output: "stderr",
	}
}

// ProductionLoggingConfig returns a machine-readable configuration for runs
// driven by automation
func ProductionLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}
}

// TestLoggingConfig returns a quiet configuration for use in tests
func TestLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:  "error",
		Format: "text",
		Output: "stderr",
	}
}

// SetupEnvironmentLogging overrides the logging section with the preset for
// the named environment. Unknown names leave the configuration untouched.
func SetupEnvironmentLogging(cfg *config.Config, environment string) {
	switch environment {
	case "development", "dev":
		cfg.Logging = DevelopmentLoggingConfig()
	case "production", "prod":
		cfg.Logging = ProductionLoggingConfig()
	case "test":
		cfg.Logging = TestLoggingConfig()
	}
}
