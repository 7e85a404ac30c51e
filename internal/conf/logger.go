// Package conf provides runtime configuration management for motionsync-go.
package conf

import "github.com/tphakala/motionsync-go/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched on each call so it follows the logger installed after startup.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
