// Package utils exposes helpers shared by the CLI and the audit command.
//
// ConfigurationLoader layers embedded defaults, an optional file and LAYERAUDIT_
// environment variables through Viper. LoggerFactory builds zap loggers and tees
// them into per-run log files, and CleanupOldFiles enforces file retention.
package utils
