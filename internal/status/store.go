package status

import (
	"sort"
	"sync"
	"time"

	"github.com/streamvr/server/internal/dispatch"
	"github.com/streamvr/server/internal/host"
)

// Snapshot is the observable state of the driver as seen from the host
// calls it has made.
type Snapshot struct {
	RunID             string              `json:"runId"`
	Bridge            bool                `json:"bridge"`
	Streaming         bool                `json:"streaming"`
	ShutdownRequested bool                `json:"shutdownRequested"`
	Batteries         []host.BatteryState `json:"batteries"`
	Chaperone         *host.Area          `json:"chaperone,omitempty"`
	Views             *host.ViewsConfig   `json:"views,omitempty"`
	Resyncs           int                 `json:"resyncs"`
	IDRs              int                 `json:"idrs"`
	Calls             int                 `json:"calls"`
	LastCallAt        time.Time           `json:"lastCallAt"`
	Dispatch          *dispatch.Stats     `json:"dispatch,omitempty"`
	Process           *ProcessStats       `json:"process,omitempty"`
}

// Store folds host calls into a Snapshot.
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	batteries map[uint64]host.BatteryState
}

func NewStore(runID string) *Store {
	return &Store{
		snap:      Snapshot{RunID: runID},
		batteries: make(map[uint64]host.BatteryState),
	}
}

func (s *Store) Apply(c host.Call) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Calls++
	s.snap.LastCallAt = c.At

	switch c.Kind {
	case host.CallInitBridge:
		s.snap.Bridge = true
	case host.CallShutdownBridge:
		s.snap.Bridge = false
		s.snap.Streaming = false
	case host.CallInitializeStreaming:
		s.snap.Streaming = true
	case host.CallDeinitializeStreaming:
		s.snap.Streaming = false
	case host.CallRequestDriverResync:
		s.snap.Resyncs++
	case host.CallRequestIDR:
		s.snap.IDRs++
	case host.CallShutdownRuntime:
		s.snap.ShutdownRequested = true
	case host.CallSetBattery:
		if c.Battery != nil {
			s.batteries[c.Battery.DeviceID] = *c.Battery
		}
	case host.CallSetChaperoneArea:
		if c.Area != nil {
			a := *c.Area
			s.snap.Chaperone = &a
		}
	case host.CallSetViewsConfig:
		if c.Views != nil {
			v := *c.Views
			s.snap.Views = &v
		}
	}
}

// Snapshot returns a copy of the current state with batteries ordered by
// device id.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	snap.Batteries = make([]host.BatteryState, 0, len(s.batteries))
	for _, b := range s.batteries {
		snap.Batteries = append(snap.Batteries, b)
	}
	sort.Slice(snap.Batteries, func(i, j int) bool {
		return snap.Batteries[i].DeviceID < snap.Batteries[j].DeviceID
	})
	return snap
}
