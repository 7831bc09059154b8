package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/streamvr/server/internal/config"
	"github.com/streamvr/server/internal/driver"
	"github.com/streamvr/server/internal/host"
	"github.com/streamvr/server/internal/journal"
	"github.com/streamvr/server/internal/logging"
	"github.com/streamvr/server/internal/mock"
	"github.com/streamvr/server/internal/session"
	"github.com/streamvr/server/internal/settings"
	"github.com/streamvr/server/internal/status"
)

var (
	servePort     int
	serveMaxConns int
	serveNoDesync bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the driver against a simulated headset",
	Long: `Run the driver with a scripted headset session.

The driver registers with an in-process host, starts its dispatch loop and
serves live status on /ws, /api/status and /api/journal. SIGHUP reloads the
config file; SIGINT or SIGTERM shuts the runtime down. SIGUSR1 asks the
session for a restart, which re-executes the command once the loop has
exited.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if serveNoDesync {
			off := false
			cfg.Desync.Detect = &off
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logging.Init(cfg.Logging)

		restart, err := serve(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if restart {
			return reexec()
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override server port")
	serveCmd.Flags().IntVar(&serveMaxConns, "max-conns", 16, "Maximum status websocket clients (0 for unlimited)")
	serveCmd.Flags().BoolVar(&serveNoDesync, "no-desync", false, "Disable render latency desync detection")
}

// inProcessHost is the registrar for a driver hosted in this process. It
// keeps the callbacks so the compositor and signal handling can drive them.
type inProcessHost struct {
	cb atomic.Value
}

func (h *inProcessHost) Register(cb driver.Callbacks) {
	h.cb.Store(cb)
}

func (h *inProcessHost) callbacks() driver.Callbacks {
	cb, _ := h.cb.Load().(driver.Callbacks)
	return cb
}

// serve runs one driver lifetime and reports whether the session asked for
// a restart.
func serve(parent context.Context, cfg *config.Config) (bool, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	manager := settings.NewManager(configPath, cfg)
	manager.OnReload(func(old, new *config.Config) {
		for _, change := range config.Diff(old, new) {
			log.Info().Str("change", change).Msg("Config reloaded")
		}
	})

	var (
		sinks   []host.Sink
		history status.History
		runID   string
	)
	if cfg.Journal.Enabled {
		jrnl, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return false, err
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer flushCancel()
			if err := jrnl.Flush(flushCtx); err != nil {
				log.Warn().Err(err).Msg("Flushing journal")
			}
			if err := jrnl.Close(); err != nil {
				log.Warn().Err(err).Msg("Closing journal")
			}
		}()
		sinks = append(sinks, jrnl)
		history = jrnl
		runID = jrnl.RunID()
	}

	store := status.NewStore(runID)
	broadcaster := status.NewBroadcaster(store, cfg.Status.BroadcastThrottle, cfg.Status.SnapshotInterval, serveMaxConns)
	defer broadcaster.Stop()
	sinks = append(sinks, broadcaster)

	recorder := host.NewRecorder(host.LogAdapter{}, sinks...)

	var (
		restart atomic.Bool
		current atomic.Pointer[mock.Session]
	)
	d := driver.New(manager, recorder, func(c *config.Config) session.Context {
		s := mock.FromConfig(c, func() { restart.Store(true) })
		current.Store(s)
		return s
	})
	broadcaster.SetDispatchStats(d.Stats)

	h := &inProcessHost{}
	d.Register(h)
	cb := h.callbacks()
	cb.DriverReadyIdle(true)

	comp := newCompositor(cb, d, manager)
	go comp.run(ctx)

	srv := status.NewServer(cfg.Server, broadcaster, history)
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- status.ListenAndServe(ctx, cfg.Server.Host, cfg.Server.Port, srv.Handler())
	}()

	sigCh := make(chan os.Signal, 1)
	watched := []os.Signal{os.Interrupt, syscall.SIGTERM}
	watched = append(watched, reloadSignals...)
	watched = append(watched, restartSignals...)
	signal.Notify(sigCh, watched...)
	defer signal.Stop(sigCh)

	var runErr error
loop:
	for {
		select {
		case sig := <-sigCh:
			switch {
			case slices.Contains(reloadSignals, sig):
				if err := manager.Reload(); err != nil {
					log.Error().Err(err).Msg("Config reload failed, keeping current settings")
				}
			case slices.Contains(restartSignals, sig):
				if s := current.Load(); s != nil {
					log.Info().Str("session", s.ID()).Msg("Requesting session restart")
					s.Push(session.RestartPending{})
				}
			default:
				log.Info().Str("signal", sig.String()).Msg("Shutting down")
				cb.ShutdownRuntime()
			}
		case err := <-srvErr:
			runErr = err
			cb.ShutdownRuntime()
			srvErr = nil
		case <-d.Done():
			break loop
		}
	}

	cancel()
	if srvErr != nil {
		if err := <-srvErr; err != nil && runErr == nil {
			runErr = err
		}
	}
	log.Info().Interface("stats", d.Stats()).Bool("restart", restart.Load()).Msg("Driver stopped")
	return restart.Load() && runErr == nil, runErr
}

// reexec starts a fresh copy of this process with the same arguments and
// waits for it.
func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}
	log.Info().Str("exe", exe).Msg("Restarting")
	c := exec.Command(exe, os.Args[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Env = os.Environ()
	return c.Run()
}
