// Package mock provides a simulated streaming session for running the driver
// without a headset.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/streamvr/server/internal/config"
	"github.com/streamvr/server/internal/session"
)

type Options struct {
	// Tick is how often the script advances. Zero disables the script;
	// events then only arrive through Push.
	Tick        time.Duration
	RefreshRate float32
	Seed        int64
	// OnRestart runs once when the session is restarted.
	OnRestart func()
}

// Session is a session.Context backed by a scripted event source.
type Session struct {
	id   string
	opts Options

	mu      sync.Mutex
	pending *queue.Queue
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	anchor  time.Time
	now     func() time.Time
	haptics atomic.Uint64
}

func NewSession(opts Options) *Session {
	return &Session{
		id:      uuid.NewString(),
		opts:    opts,
		pending: queue.New(),
		anchor:  time.Now(),
		now:     time.Now,
	}
}

// FromConfig builds a session paced by the mock and video settings.
func FromConfig(cfg *config.Config, onRestart func()) *Session {
	return NewSession(Options{
		Tick:        cfg.Mock.Tick,
		RefreshRate: cfg.Video.RefreshRate,
		Seed:        time.Now().UnixNano(),
		OnRestart:   onRestart,
	})
}

func (s *Session) ID() string { return s.id }

// StartConnection starts the script. Only the first call has an effect.
func (s *Session) StartConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	log.Info().Str("session", s.id).Msg("Simulated session accepting connections")

	if s.opts.Tick <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx, newScript(s.opts.Seed))
}

func (s *Session) run(ctx context.Context, sc *script) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			for _, ev := range sc.events(tick) {
				s.Push(ev)
			}
		}
	}
}

// Push queues ev for the next PollEvent. Events pushed after Close or
// Restart are discarded.
func (s *Session) Push(ev session.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending.Add(ev)
}

func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Length()
}

func (s *Session) PollEvent() (session.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Length() == 0 {
		return nil, false
	}
	return s.pending.Remove().(session.Event), true
}

func (s *Session) SendHaptics(h session.Haptics) {
	s.haptics.Add(1)
	log.Debug().
		Uint64("device", h.DeviceID).
		Dur("duration", h.Duration).
		Float32("frequency", h.Frequency).
		Float32("amplitude", h.Amplitude).
		Msg("Haptics")
}

// HapticsSent counts the haptics requests received so far.
func (s *Session) HapticsSent() uint64 {
	return s.haptics.Load()
}

// DurationUntilNextVsync reports the time to the next frame boundary of a
// display running at the configured refresh rate.
func (s *Session) DurationUntilNextVsync() (time.Duration, bool) {
	if s.opts.RefreshRate <= 0 {
		return 0, false
	}
	frame := time.Duration(float64(time.Second) / float64(s.opts.RefreshRate))
	if frame <= 0 {
		return 0, false
	}
	elapsed := s.now().Sub(s.anchor)
	if elapsed < 0 {
		elapsed = 0
	}
	return frame - elapsed%frame, true
}

func (s *Session) Restart() {
	if !s.stop() {
		return
	}
	log.Info().Str("session", s.id).Msg("Simulated session restarting")
	if s.opts.OnRestart != nil {
		s.opts.OnRestart()
	}
}

func (s *Session) Close() error {
	if s.stop() {
		log.Info().Str("session", s.id).Msg("Simulated session closed")
	}
	return nil
}

// stop halts the script and reports whether this call did so.
func (s *Session) stop() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return true
}
