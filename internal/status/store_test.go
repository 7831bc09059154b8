package status

import (
	"testing"
	"time"

	"github.com/streamvr/server/internal/host"
)

func TestStoreApply(t *testing.T) {
	s := NewStore("run-1")
	at := time.Unix(1000, 0)

	calls := []host.Call{
		{Kind: host.CallInitBridge},
		{Kind: host.CallSetChaperoneArea, Area: &host.Area{Width: 2, Height: 2}},
		{Kind: host.CallInitializeStreaming},
		{Kind: host.CallRequestDriverResync},
		{Kind: host.CallSetBattery, Battery: &host.BatteryState{DeviceID: 9, Gauge: 0.8}},
		{Kind: host.CallSetBattery, Battery: &host.BatteryState{DeviceID: 3, Gauge: 0.5, IsPlugged: true}},
		{Kind: host.CallSetBattery, Battery: &host.BatteryState{DeviceID: 9, Gauge: 0.7}},
		{Kind: host.CallSetViewsConfig, Views: &host.ViewsConfig{IPD: 0.064}},
		{Kind: host.CallRequestIDR},
		{Kind: host.CallRequestIDR},
		{Kind: host.CallRequestDriverResync, At: at},
	}
	for _, c := range calls {
		s.Apply(c)
	}

	snap := s.Snapshot()
	if snap.RunID != "run-1" {
		t.Errorf("RunID = %q", snap.RunID)
	}
	if !snap.Bridge || !snap.Streaming {
		t.Errorf("bridge/streaming = %v/%v, want both true", snap.Bridge, snap.Streaming)
	}
	if snap.Resyncs != 2 || snap.IDRs != 2 || snap.Calls != len(calls) {
		t.Errorf("counters = resyncs %d, idrs %d, calls %d", snap.Resyncs, snap.IDRs, snap.Calls)
	}
	if !snap.LastCallAt.Equal(at) {
		t.Errorf("LastCallAt = %v, want %v", snap.LastCallAt, at)
	}
	if snap.Chaperone == nil || snap.Chaperone.Width != 2 {
		t.Errorf("Chaperone = %+v", snap.Chaperone)
	}
	if snap.Views == nil || snap.Views.IPD != 0.064 {
		t.Errorf("Views = %+v", snap.Views)
	}
	if len(snap.Batteries) != 2 {
		t.Fatalf("batteries = %+v, want 2 devices", snap.Batteries)
	}
	if snap.Batteries[0].DeviceID != 3 || snap.Batteries[1].Gauge != 0.7 {
		t.Errorf("batteries = %+v, want sorted with latest gauge", snap.Batteries)
	}

	s.Apply(host.Call{Kind: host.CallDeinitializeStreaming})
	s.Apply(host.Call{Kind: host.CallShutdownRuntime})
	s.Apply(host.Call{Kind: host.CallShutdownBridge})
	snap = s.Snapshot()
	if snap.Bridge || snap.Streaming || !snap.ShutdownRequested {
		t.Errorf("after shutdown: %+v", snap)
	}
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	s := NewStore("r")
	s.Apply(host.Call{Kind: host.CallSetChaperoneArea, Area: &host.Area{Width: 1, Height: 1}})

	snap := s.Snapshot()
	snap.Chaperone.Width = 99
	snap.Batteries = append(snap.Batteries, host.BatteryState{DeviceID: 1})

	again := s.Snapshot()
	if again.Chaperone.Width == 99 {
		t.Error("mutating a snapshot changed the store")
	}
	if len(again.Batteries) != 0 {
		t.Error("mutating snapshot batteries changed the store")
	}
}
