// Package dispatch runs the background loop that drains session events and
// turns them into host requests.
package dispatch

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamvr/server/internal/config"
	"github.com/streamvr/server/internal/host"
	"github.com/streamvr/server/internal/session"
)

const DefaultPollInterval = 5 * time.Millisecond

// Options configures a Loop.
type Options struct {
	PollInterval time.Duration

	SetDefaultChaperone bool
	ChaperoneWidth      float32
	ChaperoneHeight     float32

	DetectDesync     bool
	LatencyThreshold time.Duration
	ResyncCooldown   time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		PollInterval:     DefaultPollInterval,
		ChaperoneWidth:   2,
		ChaperoneHeight:  2,
		DetectDesync:     detectDesyncByDefault,
		LatencyThreshold: DefaultLatencyThreshold,
		ResyncCooldown:   DefaultResyncCooldown,
	}
}

// OptionsFromConfig builds loop options from cfg. setDefaultChaperone is the
// host's request; the config may override it.
func OptionsFromConfig(cfg *config.Config, setDefaultChaperone bool) Options {
	opts := DefaultOptions()
	opts.SetDefaultChaperone = setDefaultChaperone
	if cfg == nil {
		return opts
	}
	if cfg.Driver.PollInterval > 0 {
		opts.PollInterval = cfg.Driver.PollInterval
	}
	if cfg.Driver.SetDefaultChaperone != nil {
		opts.SetDefaultChaperone = *cfg.Driver.SetDefaultChaperone
	}
	opts.ChaperoneWidth = cfg.Driver.DefaultChaperone.Width
	opts.ChaperoneHeight = cfg.Driver.DefaultChaperone.Height
	if cfg.Desync.Detect != nil {
		opts.DetectDesync = *cfg.Desync.Detect
	}
	if cfg.Desync.LatencyThreshold > 0 {
		opts.LatencyThreshold = cfg.Desync.LatencyThreshold
	}
	if cfg.Desync.Cooldown > 0 {
		opts.ResyncCooldown = cfg.Desync.Cooldown
	}
	return opts
}

// Stats counts what a loop has done so far.
type Stats struct {
	Events    uint64 `json:"events"`
	Resyncs   uint64 `json:"resyncs"`
	IdlePolls uint64 `json:"idlePolls"`
}

// Loop drains events from the Context held in a Cell. It runs until the
// cell is found empty, which happens after a shutdown or restart event or
// after a host-initiated ShutdownRuntime.
type Loop struct {
	cell   *session.Cell
	host   host.Adapter
	opts   Options
	desync desyncTracker

	now   func() time.Time
	sleep func(time.Duration)

	events    atomic.Uint64
	resyncs   atomic.Uint64
	idlePolls atomic.Uint64
}

func New(cell *session.Cell, h host.Adapter, opts Options) *Loop {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.LatencyThreshold <= 0 {
		opts.LatencyThreshold = DefaultLatencyThreshold
	}
	if opts.ResyncCooldown <= 0 {
		opts.ResyncCooldown = DefaultResyncCooldown
	}
	return &Loop{
		cell: cell,
		host: h,
		opts: opts,
		desync: desyncTracker{
			enabled:   opts.DetectDesync,
			threshold: opts.LatencyThreshold,
			cooldown:  opts.ResyncCooldown,
		},
		now:   time.Now,
		sleep: time.Sleep,
	}
}

func (l *Loop) Stats() Stats {
	return Stats{
		Events:    l.events.Load(),
		Resyncs:   l.resyncs.Load(),
		IdlePolls: l.idlePolls.Load(),
	}
}

// Run blocks until the session context is gone. The host bridge is open for
// exactly the lifetime of Run.
func (l *Loop) Run() {
	l.host.InitBridge()
	if l.opts.SetDefaultChaperone {
		l.host.SetChaperoneArea(l.opts.ChaperoneWidth, l.opts.ChaperoneHeight)
	}

	l.cell.Read(func(ctx session.Context) {
		ctx.StartConnection()
	})

	l.desync.reset(l.now())
	log.Info().
		Dur("poll_interval", l.opts.PollInterval).
		Bool("detect_desync", l.opts.DetectDesync).
		Msg("Dispatch loop started")

	for {
		ev, ok := l.poll()
		if !ok {
			break
		}
		if ev == nil {
			l.idlePolls.Add(1)
			l.sleep(l.opts.PollInterval)
			continue
		}
		l.handle(ev)
	}

	log.Info().Msg("Session context gone, dispatch loop exiting")
	l.host.ShutdownBridge()
}

// poll fetches one event under the shared lock. ok is false when the cell is
// empty; ev is nil when the session had nothing pending.
func (l *Loop) poll() (ev session.Event, ok bool) {
	ok = l.cell.Read(func(ctx session.Context) {
		if e, has := ctx.PollEvent(); has {
			ev = e
		}
	})
	return ev, ok
}

func (l *Loop) handle(ev session.Event) {
	l.events.Add(1)
	log.Debug().Str("event", ev.Kind().String()).Msg("Dispatching session event")

	switch ev := ev.(type) {
	case session.ClientConnected:
		l.host.InitializeStreaming()
		l.host.RequestDriverResync()
	case session.ClientDisconnected:
		l.host.DeinitializeStreaming()
	case session.Battery:
		l.host.SetBattery(ev.DeviceID, ev.GaugeValue, ev.IsPlugged)
	case session.PlayspaceSync:
		l.host.SetChaperoneArea(ev.X, ev.Y)
	case session.ViewsConfig:
		l.host.SetViewsConfig(host.ViewsConfig{Fov: ev.Fov, IPD: ev.IPD()})
	case session.RequestIDR:
		l.host.RequestIDR()
	case session.GameRenderLatencyFeedback:
		if l.desync.observe(ev.Latency, l.now()) {
			log.Warn().Dur("latency", ev.Latency).Msg("Desync detected. Attempting recovery.")
			l.resyncs.Add(1)
			l.host.RequestDriverResync()
		}
	case session.ShutdownPending:
		if ctx := l.cell.Take(); ctx != nil {
			closeContext(ctx)
		}
		l.host.ShutdownRuntime()
	case session.RestartPending:
		if ctx := l.cell.Take(); ctx != nil {
			ctx.Restart()
		}
		l.host.ShutdownRuntime()
	default:
		log.Warn().Msgf("Ignoring unknown session event %T", ev)
	}
}

func closeContext(ctx session.Context) {
	if err := ctx.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing session context")
	}
}
