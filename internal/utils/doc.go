// Package utils holds shared plumbing for the command layer.
//
// ConfigurationLoader layers embedded defaults, configuration files, and
// environment overrides through Viper. LoggerFactory builds zap loggers for
// the configured level and format, CommandContextAccessor carries the selected
// configuration file path across command boundaries, and FlushingWriter keeps
// buffered command output visible as it is produced.
package utils
