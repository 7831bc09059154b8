package main

import (
	"context"
	"time"

	"github.com/streamvr/server/internal/devices"
	"github.com/streamvr/server/internal/driver"
)

// hapticsEvery is how many frames pass between simulated rumble pulses.
const hapticsEvery = 450

type vsyncSource interface {
	VsyncDelay() (time.Duration, bool)
}

// compositor stands in for the host's render thread: it paces frames on the
// driver's vsync estimate and now and then forwards a haptic pulse.
type compositor struct {
	cb     driver.Callbacks
	vsync  vsyncSource
	cfg    driver.ConfigSource
	sleep  func(time.Duration)
	frames uint64
}

func newCompositor(cb driver.Callbacks, vsync vsyncSource, cfg driver.ConfigSource) *compositor {
	return &compositor{cb: cb, vsync: vsync, cfg: cfg, sleep: time.Sleep}
}

func (c *compositor) run(ctx context.Context) {
	for ctx.Err() == nil {
		c.frame()
	}
}

func (c *compositor) frame() {
	if delay, ok := c.vsync.VsyncDelay(); ok {
		c.sleep(delay)
	} else {
		// No session or latency optimisation off: pace at the nominal rate.
		c.sleep(c.cfg.Config().FrameInterval())
	}
	c.frames++
	if c.frames%hapticsEvery == 0 {
		c.cb.SendHaptics(devices.RightHandID, 0.02, 160, 0.4)
	}
}
