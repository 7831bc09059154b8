package session

import (
	"math"
	"time"
)

// Haptics is a vibration request for one tracked device.
type Haptics struct {
	DeviceID  uint64
	Duration  time.Duration
	Frequency float32
	Amplitude float32
}

// NewHaptics builds a Haptics from raw host input. Negative and NaN
// durations become zero; durations too large for time.Duration saturate.
func NewHaptics(deviceID uint64, durationSeconds, frequency, amplitude float32) Haptics {
	return Haptics{
		DeviceID:  deviceID,
		Duration:  clampSeconds(durationSeconds),
		Frequency: frequency,
		Amplitude: amplitude,
	}
}

func clampSeconds(s float32) time.Duration {
	if !(s > 0) {
		return 0
	}
	ns := float64(s) * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
