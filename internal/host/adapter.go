// Package host defines what the driver may ask of the rendering host and
// provides a logging implementation plus a recording decorator.
package host

import "github.com/streamvr/server/internal/session"

// ViewsConfig is the per-eye field of view and interpupillary distance
// forwarded to the host compositor.
type ViewsConfig struct {
	Fov [2]session.Fov `json:"fov"`
	IPD float32        `json:"ipdM"`
}

// Adapter is the capability set the dispatch loop drives. Calls are fire and
// forget: failures are the host's concern and are never reported back.
type Adapter interface {
	// InitBridge brings up the host-side client the driver talks through.
	InitBridge()
	ShutdownBridge()

	InitializeStreaming()
	DeinitializeStreaming()

	RequestDriverResync()
	SetChaperoneArea(width, height float32)
	SetBattery(deviceID uint64, gaugeValue float32, isPlugged bool)
	SetViewsConfig(cfg ViewsConfig)
	RequestIDR()

	// ShutdownRuntime asks the host runtime to exit entirely.
	ShutdownRuntime()
}

// DeviceSink receives device properties and input bindings when the host
// asks the driver to describe a tracked device.
type DeviceSink interface {
	SetProperty(deviceID uint64, name string, value any)
	RegisterButton(deviceID uint64, buttonID uint64)
}
