package cli

import (
	"strings"

	"go.uber.org/zap"

	"github.com/tdejager/signing-tests/internal/scenarios"
)

const (
	dryRunFlagNameConstant        = "dry-run"
	dryRunFlagDescriptionConstant = "Preview operations without making changes"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current application configuration.
type ConfigurationProvider func() ApplicationConfiguration

// HumanReadableLoggingProvider reports whether console logging is active.
type HumanReadableLoggingProvider func() bool

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}

	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func resolveConfiguration(provider ConfigurationProvider) ApplicationConfiguration {
	if provider == nil {
		return ApplicationConfiguration{}
	}

	return provider()
}

func resolveScenarioRegistry(registry *scenarios.Registry) *scenarios.Registry {
	if registry != nil {
		return registry
	}

	return scenarios.NewDefaultRegistry()
}

func selectStringValue(flagValue string, configurationValue string) string {
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) > 0 {
		return trimmedFlagValue
	}

	return strings.TrimSpace(configurationValue)
}
