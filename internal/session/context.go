package session

import "time"

// Context is a live streaming session: encoder, transport and input mapping
// live behind it. Implementations must be safe for concurrent use; the
// dispatch loop polls while host threads send haptics and query vsync.
type Context interface {
	// StartConnection makes the session start accepting client connections.
	StartConnection()

	// PollEvent returns the next pending event without blocking.
	PollEvent() (Event, bool)

	SendHaptics(h Haptics)

	// DurationUntilNextVsync reports how long until the next frame
	// boundary, if the session currently knows its frame timing.
	DurationUntilNextVsync() (time.Duration, bool)

	// Restart consumes the context: it tears the session down and arranges
	// for the server process to come back up. The context must not be used
	// afterwards.
	Restart()

	// Close releases the session. Called once on shutdown paths, never
	// while a Cell lock is held.
	Close() error
}
