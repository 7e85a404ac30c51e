// Package observability provides Prometheus metrics functionality for monitoring motionsync-go.
package observability

import "github.com/tphakala/motionsync-go/internal/logger"

// GetLogger returns the observability logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
