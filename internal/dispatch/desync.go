package dispatch

import "time"

const (
	DefaultLatencyThreshold = 250 * time.Millisecond
	DefaultResyncCooldown   = 100 * time.Millisecond
)

// desyncTracker decides when a render latency sample means the host has lost
// frame sync. Owned by the loop goroutine.
type desyncTracker struct {
	enabled    bool
	threshold  time.Duration
	cooldown   time.Duration
	lastResync time.Time
}

func (d *desyncTracker) reset(now time.Time) {
	d.lastResync = now
}

// observe reports whether a resync should be issued for this sample, and if
// so restarts the cooldown from now. Both comparisons are strict.
func (d *desyncTracker) observe(latency time.Duration, now time.Time) bool {
	if !d.enabled || latency <= d.threshold {
		return false
	}
	if now.Sub(d.lastResync) <= d.cooldown {
		return false
	}
	d.lastResync = now
	return true
}
