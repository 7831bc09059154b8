package host

import (
	"github.com/rs/zerolog/log"
)

// LogAdapter is the host used when the driver runs standalone: it performs
// no rendering and logs every request.
type LogAdapter struct{}

func (LogAdapter) InitBridge() {
	log.Info().Msg("Host bridge initialized")
}

func (LogAdapter) ShutdownBridge() {
	log.Info().Msg("Host bridge shut down")
}

func (LogAdapter) InitializeStreaming() {
	log.Info().Msg("Streaming initialized")
}

func (LogAdapter) DeinitializeStreaming() {
	log.Info().Msg("Streaming deinitialized")
}

func (LogAdapter) RequestDriverResync() {
	log.Debug().Msg("Driver resync requested")
}

func (LogAdapter) SetChaperoneArea(width, height float32) {
	log.Info().Float32("width", width).Float32("height", height).Msg("Chaperone area set")
}

func (LogAdapter) SetBattery(deviceID uint64, gaugeValue float32, isPlugged bool) {
	log.Debug().
		Uint64("device", deviceID).
		Float32("gauge", gaugeValue).
		Bool("plugged", isPlugged).
		Msg("Battery updated")
}

func (LogAdapter) SetViewsConfig(cfg ViewsConfig) {
	log.Info().
		Float32("ipd", cfg.IPD).
		Interface("fov", cfg.Fov).
		Msg("Views config updated")
}

func (LogAdapter) RequestIDR() {
	log.Debug().Msg("IDR requested")
}

func (LogAdapter) ShutdownRuntime() {
	log.Info().Msg("Runtime shutdown requested")
}

func (LogAdapter) SetProperty(deviceID uint64, name string, value any) {
	log.Debug().Uint64("device", deviceID).Str("prop", name).Interface("value", value).Msg("Device property set")
}

func (LogAdapter) RegisterButton(deviceID uint64, buttonID uint64) {
	log.Debug().Uint64("device", deviceID).Uint64("button", buttonID).Msg("Button registered")
}
