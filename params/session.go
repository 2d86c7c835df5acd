package params

import "time"

type SessionConfig struct {
	// StartCount is the number of consecutive elapsed-time>0 readings
	// required before a workout is considered started.
	StartCount int

	// IdleTimeout ends the session after this long without progress
	// (an increase in elapsed time or distance).
	IdleTimeout time.Duration

	// WatchdogInterval is how often the watchdog re-checks IdleTimeout
	// when telemetry stops arriving entirely.
	WatchdogInterval time.Duration

	// EndCooldown suppresses start detection after a session ends.
	// Machines jitter a few stale elapsed-time readings at belt stop.
	EndCooldown time.Duration

	// MinSamples is the minimum raw sample count for a valid workout.
	// Anything shorter is noise and is discarded without encoding.
	MinSamples int
}

var DefaultSessionConfig = &SessionConfig{
	StartCount:       3,
	IdleTimeout:      30 * time.Second,
	WatchdogInterval: 10 * time.Second,
	EndCooldown:      15 * time.Second,
	MinSamples:       10,
}

type SmoothConfig struct {
	// DownsampleInterval is the minimum spacing between kept trackpoints.
	DownsampleInterval time.Duration
}

var DefaultSmoothConfig = &SmoothConfig{
	DownsampleInterval: 5 * time.Second,
}
