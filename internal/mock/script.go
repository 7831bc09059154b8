package mock

import (
	"math/rand"
	"time"

	"github.com/streamvr/server/internal/devices"
	"github.com/streamvr/server/internal/session"
)

const (
	cycleTicks      = 90
	disconnectTick  = 60
	reconnectTick   = 63
	batteryEvery    = 5
	spikeEvery      = 15
	idrEvery        = 30
	spikeLatency    = 300 * time.Millisecond
	minBatteryGauge = 0.05
)

// script produces the events a simulated headset would send, tick by tick.
// A cycle is: connect, stream for a while with latency samples and battery
// reports, drop the connection briefly, reconnect.
type script struct {
	rng       *rand.Rand
	connected bool
}

func newScript(seed int64) *script {
	return &script{rng: rand.New(rand.NewSource(seed))}
}

func (s *script) events(tick int) []session.Event {
	var out []session.Event
	phase := tick % cycleTicks

	switch {
	case tick == 1 || phase == reconnectTick:
		s.connected = true
		out = append(out, session.ClientConnected{}, defaultViews(), session.PlayspaceSync{X: 2.5, Y: 3})
	case phase == disconnectTick:
		s.connected = false
		return append(out, session.ClientDisconnected{})
	}
	if !s.connected {
		return out
	}

	out = append(out, session.GameRenderLatencyFeedback{Latency: s.latency(tick)})

	if tick%batteryEvery == 0 {
		out = append(out,
			session.Battery{DeviceID: devices.HeadID, GaugeValue: batteryGauge(tick, 0.002), IsPlugged: false},
			session.Battery{DeviceID: devices.LeftHandID, GaugeValue: batteryGauge(tick, 0.004), IsPlugged: false},
			session.Battery{DeviceID: devices.RightHandID, GaugeValue: batteryGauge(tick, 0.003), IsPlugged: false},
		)
	}
	if tick%idrEvery == 0 {
		out = append(out, session.RequestIDR{})
	}
	return out
}

func (s *script) latency(tick int) time.Duration {
	if tick%spikeEvery == 0 {
		return spikeLatency
	}
	return time.Duration(8+s.rng.Intn(12)) * time.Millisecond
}

func batteryGauge(tick int, drainPerTick float32) float32 {
	g := 1 - float32(tick)*drainPerTick
	if g < minBatteryGauge {
		return minBatteryGauge
	}
	return g
}

func defaultViews() session.ViewsConfig {
	fov := session.Fov{Left: -0.82, Right: 0.82, Up: 0.86, Down: -0.9}
	v := session.ViewsConfig{Fov: [2]session.Fov{fov, fov}}
	v.LocalViewTransforms[0].Position.X = -0.0315
	v.LocalViewTransforms[1].Position.X = 0.0315
	v.LocalViewTransforms[0].Orientation.W = 1
	v.LocalViewTransforms[1].Orientation.W = 1
	return v
}
