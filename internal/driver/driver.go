// Package driver is the surface the rendering host calls into. It owns the
// session cell, starts the dispatch loop and answers the host's pacing,
// haptics and device queries.
package driver

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamvr/server/internal/config"
	"github.com/streamvr/server/internal/devices"
	"github.com/streamvr/server/internal/dispatch"
	"github.com/streamvr/server/internal/host"
	"github.com/streamvr/server/internal/logging"
	"github.com/streamvr/server/internal/session"
	"github.com/streamvr/server/internal/settings"
)

// Callbacks has one method per slot the host invokes. All methods are safe
// to call concurrently and re-entrantly.
type Callbacks interface {
	// DriverReadyIdle is called once the host is ready; it starts the
	// dispatch loop and returns immediately.
	DriverReadyIdle(setDefaultChaperone bool)
	SerialNumber(deviceID uint64) string
	SetDeviceProps(deviceID uint64)
	RegisterButtons(deviceID uint64)
	SendHaptics(deviceID uint64, durationS, frequency, amplitude float32)
	// ShutdownRuntime is the host telling the driver to go away.
	ShutdownRuntime()
	// WaitForVsync blocks the calling compositor thread until the next
	// frame boundary, when latency optimisation is on.
	WaitForVsync()
}

// Registrar is the host side of registration.
type Registrar interface {
	Register(cb Callbacks)
}

// ConfigSource supplies the live configuration.
type ConfigSource interface {
	settings.Provider
	Config() *config.Config
}

// SessionFactory builds the initial session context.
type SessionFactory func(cfg *config.Config) session.Context

type Driver struct {
	cell     *session.Cell
	host     host.Adapter
	devices  host.DeviceSink
	cfg      ConfigSource
	registry *devices.Registry

	registerOnce sync.Once
	startOnce    sync.Once
	loop         atomic.Pointer[dispatch.Loop]
	done         chan struct{}

	sleep func(time.Duration)
}

// New builds a driver. The session context is not created until something
// first touches the cell, which also initialises logging. Device requests
// are forwarded only when h also implements host.DeviceSink.
func New(cfg ConfigSource, h host.Adapter, factory SessionFactory) *Driver {
	current := cfg.Config()
	d := &Driver{
		host:     h,
		cfg:      cfg,
		registry: devices.NewRegistry(current.Headset, current.Video),
		done:     make(chan struct{}),
		sleep:    time.Sleep,
	}
	if ds, ok := h.(host.DeviceSink); ok {
		d.devices = ds
	}
	d.cell = session.NewCell(func() session.Context {
		c := cfg.Config()
		logging.Init(c.Logging)
		log.Info().Msg("Creating session context")
		return factory(c)
	})
	return d
}

// Register hands the driver's callbacks to the host. The first call forces
// the session context into existence; later calls do nothing.
func (d *Driver) Register(r Registrar) {
	d.cell.Present()
	d.registerOnce.Do(func() {
		r.Register(d)
		log.Info().Msg("Driver registered with host")
	})
}

func (d *Driver) DriverReadyIdle(setDefaultChaperone bool) {
	d.startOnce.Do(func() {
		opts := dispatch.OptionsFromConfig(d.cfg.Config(), setDefaultChaperone)
		l := dispatch.New(d.cell, d.host, opts)
		d.loop.Store(l)
		go func() {
			defer close(d.done)
			l.Run()
		}()
	})
}

// Done is closed once the dispatch loop has exited.
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// Stats reports the dispatch loop counters, zero before DriverReadyIdle.
func (d *Driver) Stats() dispatch.Stats {
	if l := d.loop.Load(); l != nil {
		return l.Stats()
	}
	return dispatch.Stats{}
}

func (d *Driver) SerialNumber(deviceID uint64) string {
	return d.registry.Serial(deviceID)
}

func (d *Driver) SetDeviceProps(deviceID uint64) {
	if d.devices == nil {
		return
	}
	for _, p := range d.registry.Props(deviceID) {
		d.devices.SetProperty(deviceID, p.Name, p.Value)
	}
}

func (d *Driver) RegisterButtons(deviceID uint64) {
	if d.devices == nil {
		return
	}
	for _, id := range d.registry.Buttons(deviceID) {
		d.devices.RegisterButton(deviceID, id)
	}
}

// SendHaptics forwards a vibration request. It is dropped when there is no
// session.
func (d *Driver) SendHaptics(deviceID uint64, durationS, frequency, amplitude float32) {
	h := session.NewHaptics(deviceID, durationS, frequency, amplitude)
	d.cell.Read(func(ctx session.Context) {
		ctx.SendHaptics(h)
	})
}

// VsyncDelay returns how long the compositor should wait for the next frame
// boundary. It never blocks beyond lock acquisition.
func (d *Driver) VsyncDelay() (time.Duration, bool) {
	if !d.cfg.OptimizeRenderLatency() {
		return 0, false
	}
	var (
		delay time.Duration
		ok    bool
	)
	d.cell.Read(func(ctx session.Context) {
		delay, ok = ctx.DurationUntilNextVsync()
	})
	return delay, ok
}

func (d *Driver) WaitForVsync() {
	if delay, ok := d.VsyncDelay(); ok && delay > 0 {
		d.sleep(delay)
	}
}

// ShutdownRuntime drops the session. The dispatch loop notices within one
// poll interval and exits. Safe to call repeatedly.
func (d *Driver) ShutdownRuntime() {
	ctx := d.cell.Take()
	if ctx == nil {
		return
	}
	log.Info().Msg("Host requested shutdown, closing session")
	if err := ctx.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing session context")
	}
}
