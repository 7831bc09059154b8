package session

import (
	"encoding/json"
	"time"
)

// Kind classifies session lifecycle events.
type Kind int

const (
	KindClientConnected Kind = iota
	KindClientDisconnected
	KindBattery
	KindPlayspaceSync
	KindViewsConfig
	KindRequestIDR
	KindGameRenderLatencyFeedback
	KindShutdownPending
	KindRestartPending
)

var kindNames = map[Kind]string{
	KindClientConnected:           "client_connected",
	KindClientDisconnected:        "client_disconnected",
	KindBattery:                   "battery",
	KindPlayspaceSync:             "playspace_sync",
	KindViewsConfig:               "views_config",
	KindRequestIDR:                "request_idr",
	KindGameRenderLatencyFeedback: "game_render_latency_feedback",
	KindShutdownPending:           "shutdown_pending",
	KindRestartPending:            "restart_pending",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Event is emitted by a session Context and consumed by the dispatch loop.
// The set of implementations is closed; switch on the concrete type.
type Event interface {
	Kind() Kind
	isEvent()
}

type ClientConnected struct{}

type ClientDisconnected struct{}

// Battery reports the charge of one tracked device. GaugeValue is in [0, 1].
type Battery struct {
	DeviceID   uint64
	GaugeValue float32
	IsPlugged  bool
}

// PlayspaceSync carries the client's play-space bounds in meters.
type PlayspaceSync struct {
	X float32
	Y float32
}

// Fov holds the four half-angles of one eye's frustum, in radians.
type Fov struct {
	Left  float32 `json:"left"`
	Right float32 `json:"right"`
	Up    float32 `json:"up"`
	Down  float32 `json:"down"`
}

// Vec3 is a position in meters.
type Vec3 struct {
	X, Y, Z float32
}

// Quat is a unit orientation quaternion.
type Quat struct {
	X, Y, Z, W float32
}

// Pose is an eye transform relative to the head.
type Pose struct {
	Position    Vec3
	Orientation Quat
}

// ViewsConfig describes both eyes' frusta and their offsets from the head.
type ViewsConfig struct {
	Fov                 [2]Fov
	LocalViewTransforms [2]Pose
}

// IPD returns the interpupillary distance implied by the eye transforms.
func (v ViewsConfig) IPD() float32 {
	return v.LocalViewTransforms[1].Position.X - v.LocalViewTransforms[0].Position.X
}

type RequestIDR struct{}

// GameRenderLatencyFeedback is one measured render-to-display latency sample.
type GameRenderLatencyFeedback struct {
	Latency time.Duration
}

type ShutdownPending struct{}

type RestartPending struct{}

func (ClientConnected) Kind() Kind           { return KindClientConnected }
func (ClientDisconnected) Kind() Kind        { return KindClientDisconnected }
func (Battery) Kind() Kind                   { return KindBattery }
func (PlayspaceSync) Kind() Kind             { return KindPlayspaceSync }
func (ViewsConfig) Kind() Kind               { return KindViewsConfig }
func (RequestIDR) Kind() Kind                { return KindRequestIDR }
func (GameRenderLatencyFeedback) Kind() Kind { return KindGameRenderLatencyFeedback }
func (ShutdownPending) Kind() Kind           { return KindShutdownPending }
func (RestartPending) Kind() Kind            { return KindRestartPending }

func (ClientConnected) isEvent()           {}
func (ClientDisconnected) isEvent()        {}
func (Battery) isEvent()                   {}
func (PlayspaceSync) isEvent()             {}
func (ViewsConfig) isEvent()               {}
func (RequestIDR) isEvent()                {}
func (GameRenderLatencyFeedback) isEvent() {}
func (ShutdownPending) isEvent()           {}
func (RestartPending) isEvent()            {}
