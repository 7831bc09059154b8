package host

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/streamvr/server/internal/session"
)

// stubHost counts calls by kind. It does not implement DeviceSink.
type stubHost struct {
	mu    sync.Mutex
	calls []CallKind
}

func (s *stubHost) add(k CallKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, k)
}

func (s *stubHost) InitBridge()                          { s.add(CallInitBridge) }
func (s *stubHost) ShutdownBridge()                      { s.add(CallShutdownBridge) }
func (s *stubHost) InitializeStreaming()                 { s.add(CallInitializeStreaming) }
func (s *stubHost) DeinitializeStreaming()               { s.add(CallDeinitializeStreaming) }
func (s *stubHost) RequestDriverResync()                 { s.add(CallRequestDriverResync) }
func (s *stubHost) SetChaperoneArea(float32, float32)    { s.add(CallSetChaperoneArea) }
func (s *stubHost) SetBattery(uint64, float32, bool)     { s.add(CallSetBattery) }
func (s *stubHost) SetViewsConfig(ViewsConfig)           { s.add(CallSetViewsConfig) }
func (s *stubHost) RequestIDR()                          { s.add(CallRequestIDR) }
func (s *stubHost) ShutdownRuntime()                     { s.add(CallShutdownRuntime) }

// deviceHost additionally accepts device requests.
type deviceHost struct {
	stubHost
	props   []string
	buttons []uint64
}

func (d *deviceHost) SetProperty(_ uint64, name string, _ any) { d.props = append(d.props, name) }
func (d *deviceHost) RegisterButton(_ uint64, id uint64)       { d.buttons = append(d.buttons, id) }

type sliceSink struct {
	calls []Call
}

func (s *sliceSink) Record(c Call) { s.calls = append(s.calls, c) }

func TestRecorderForwardsAndRecords(t *testing.T) {
	next := &stubHost{}
	sinkA, sinkB := &sliceSink{}, &sliceSink{}
	r := NewRecorder(next, sinkA, sinkB)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.InitBridge()
	r.InitializeStreaming()
	r.RequestDriverResync()
	r.SetChaperoneArea(2, 3)
	r.SetBattery(42, 0.75, true)
	r.SetViewsConfig(ViewsConfig{Fov: [2]session.Fov{{Left: -1}, {Right: 1}}, IPD: 0.063})
	r.RequestIDR()
	r.DeinitializeStreaming()
	r.ShutdownRuntime()
	r.ShutdownBridge()

	want := []CallKind{
		CallInitBridge, CallInitializeStreaming, CallRequestDriverResync,
		CallSetChaperoneArea, CallSetBattery, CallSetViewsConfig, CallRequestIDR,
		CallDeinitializeStreaming, CallShutdownRuntime, CallShutdownBridge,
	}
	if !reflect.DeepEqual(next.calls, want) {
		t.Errorf("forwarded = %v, want %v", next.calls, want)
	}

	for _, sink := range []*sliceSink{sinkA, sinkB} {
		if len(sink.calls) != len(want) {
			t.Fatalf("sink saw %d calls, want %d", len(sink.calls), len(want))
		}
		for i, c := range sink.calls {
			if c.Kind != want[i] {
				t.Errorf("sink call %d = %s, want %s", i, c.Kind, want[i])
			}
			if !c.At.Equal(fixed) {
				t.Errorf("sink call %d At = %v, want %v", i, c.At, fixed)
			}
		}
	}

	area := sinkA.calls[3].Area
	if area == nil || area.Width != 2 || area.Height != 3 {
		t.Errorf("chaperone payload = %+v, want 2x3", area)
	}
	bat := sinkA.calls[4].Battery
	if bat == nil || *bat != (BatteryState{DeviceID: 42, Gauge: 0.75, IsPlugged: true}) {
		t.Errorf("battery payload = %+v", bat)
	}
	views := sinkA.calls[5].Views
	if views == nil || views.IPD != 0.063 || views.Fov[0].Left != -1 || views.Fov[1].Right != 1 {
		t.Errorf("views payload = %+v", views)
	}
}

func TestRecorderDeviceRequests(t *testing.T) {
	t.Run("forwarded when host supports devices", func(t *testing.T) {
		next := &deviceHost{}
		sink := &sliceSink{}
		r := NewRecorder(next, sink)

		r.SetProperty(1, "serial", "ABC")
		r.RegisterButton(1, 99)

		if !reflect.DeepEqual(next.props, []string{"serial"}) {
			t.Errorf("props = %v", next.props)
		}
		if !reflect.DeepEqual(next.buttons, []uint64{99}) {
			t.Errorf("buttons = %v", next.buttons)
		}
		if len(sink.calls) != 2 || sink.calls[0].Property.Name != "serial" || sink.calls[1].Button.ButtonID != 99 {
			t.Errorf("sink calls = %+v", sink.calls)
		}
	})

	t.Run("recorded only when host lacks devices", func(t *testing.T) {
		sink := &sliceSink{}
		r := NewRecorder(&stubHost{}, sink)

		r.SetProperty(1, "serial", "ABC")
		r.RegisterButton(1, 99)

		if len(sink.calls) != 2 {
			t.Errorf("sink saw %d calls, want 2", len(sink.calls))
		}
	})
}

func TestLogAdapterSatisfiesInterfaces(t *testing.T) {
	var _ Adapter = LogAdapter{}
	var _ DeviceSink = LogAdapter{}
	var _ Adapter = (*Recorder)(nil)
	var _ DeviceSink = (*Recorder)(nil)
}
