package constants

import "time"

// Shared duration vocabulary used by timeouts and delays.
const (
	Duration5Seconds  = 5 * time.Second
	Duration10Seconds = 10 * time.Second
	Duration30Seconds = 30 * time.Second
)

// Domain-level timing constants.
const (
	StoreOpenTimeout = Duration5Seconds
	StoreBusyTimeout = Duration5Seconds

	// DefaultRebootDelay matches the grace period given by `shutdown /t`.
	DefaultRebootDelay = Duration10Seconds

	RegImportTimeout = Duration30Seconds
)
