package frame

import "time"

// FrameUnit is the frame length dt is measured in.
const FrameUnit = 16.667 // milliseconds

// RuntimeConfig is the immutable configuration of a Dispatcher.
type RuntimeConfig struct {
	// FrameLimit caps ticks per second. Zero runs unpaced.
	FrameLimit int

	// VerboseNetwork logs every connect, disconnect and dropped packet.
	VerboseNetwork bool

	// WriteOutput writes the console transcript on shutdown even without
	// a fatal error.
	WriteOutput bool

	// ShutdownTimeout bounds writing the transcript on shutdown.
	ShutdownTimeout time.Duration
}

// DefaultRuntimeConfig returns the configuration used when none is given.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		FrameLimit:      60,
		ShutdownTimeout: 5 * time.Second,
	}
}

// frameBudget returns the minimum duration of a tick, or 0 when unpaced.
func (c RuntimeConfig) frameBudget() time.Duration {
	if c.FrameLimit <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FrameLimit)
}
