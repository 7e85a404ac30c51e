// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation and status label values.
const (
	// OpAnalyze is a single backend analyze call.
	OpAnalyze = "analyze"
	// OpCreateProcessor is a processor creation attempt.
	OpCreateProcessor = "create_processor"
	// OpInitializeEngine is an engine initialization attempt.
	OpInitializeEngine = "initialize_engine"
	// OpUpdate is one controller update tick.
	OpUpdate = "update"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket configuration constants.
const (
	// BucketStart10us is the starting bucket for analyze duration histograms (10us to ~80ms).
	BucketStart10us = 0.00001
	// BucketStart100us is the starting bucket for update duration histograms (0.1ms to ~400ms).
	BucketStart100us = 0.0001
	// BucketFactor2 is the exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount14 defines 14 exponential buckets.
	BucketCount14 = 14
)

// ShutdownTimeout is the timeout for graceful shutdown of the metrics endpoint.
const ShutdownTimeout = 5 * time.Second
