package host

import "time"

// CallKind names a host request.
type CallKind string

const (
	CallInitBridge            CallKind = "init_bridge"
	CallShutdownBridge        CallKind = "shutdown_bridge"
	CallInitializeStreaming   CallKind = "initialize_streaming"
	CallDeinitializeStreaming CallKind = "deinitialize_streaming"
	CallRequestDriverResync   CallKind = "request_driver_resync"
	CallSetChaperoneArea      CallKind = "set_chaperone_area"
	CallSetBattery            CallKind = "set_battery"
	CallSetViewsConfig        CallKind = "set_views_config"
	CallRequestIDR            CallKind = "request_idr"
	CallShutdownRuntime       CallKind = "shutdown_runtime"
	CallSetProperty           CallKind = "set_property"
	CallRegisterButton        CallKind = "register_button"
)

type BatteryState struct {
	DeviceID  uint64  `json:"deviceId"`
	Gauge     float32 `json:"gauge"`
	IsPlugged bool    `json:"isPlugged"`
}

type Area struct {
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

type Property struct {
	DeviceID uint64 `json:"deviceId"`
	Name     string `json:"name"`
	Value    any    `json:"value"`
}

type Button struct {
	DeviceID uint64 `json:"deviceId"`
	ButtonID uint64 `json:"buttonId"`
}

// Call is a record of one request made to the host, with whichever payload
// that request carried.
type Call struct {
	Kind     CallKind      `json:"kind"`
	At       time.Time     `json:"at"`
	Battery  *BatteryState `json:"battery,omitempty"`
	Area     *Area         `json:"area,omitempty"`
	Views    *ViewsConfig  `json:"views,omitempty"`
	Property *Property     `json:"property,omitempty"`
	Button   *Button       `json:"button,omitempty"`
}

// Sink observes host calls. Record is invoked on the caller's goroutine
// (usually the dispatch loop) and must not block.
type Sink interface {
	Record(call Call)
}

// Recorder forwards every request to the wrapped host and then reports it
// to the sinks. Device requests are forwarded only when the wrapped host
// also implements DeviceSink.
type Recorder struct {
	next    Adapter
	devices DeviceSink
	sinks   []Sink
	now     func() time.Time
}

func NewRecorder(next Adapter, sinks ...Sink) *Recorder {
	r := &Recorder{
		next:  next,
		sinks: sinks,
		now:   time.Now,
	}
	if ds, ok := next.(DeviceSink); ok {
		r.devices = ds
	}
	return r
}

func (r *Recorder) record(c Call) {
	c.At = r.now()
	for _, s := range r.sinks {
		s.Record(c)
	}
}

func (r *Recorder) InitBridge() {
	r.next.InitBridge()
	r.record(Call{Kind: CallInitBridge})
}

func (r *Recorder) ShutdownBridge() {
	r.next.ShutdownBridge()
	r.record(Call{Kind: CallShutdownBridge})
}

func (r *Recorder) InitializeStreaming() {
	r.next.InitializeStreaming()
	r.record(Call{Kind: CallInitializeStreaming})
}

func (r *Recorder) DeinitializeStreaming() {
	r.next.DeinitializeStreaming()
	r.record(Call{Kind: CallDeinitializeStreaming})
}

func (r *Recorder) RequestDriverResync() {
	r.next.RequestDriverResync()
	r.record(Call{Kind: CallRequestDriverResync})
}

func (r *Recorder) SetChaperoneArea(width, height float32) {
	r.next.SetChaperoneArea(width, height)
	r.record(Call{Kind: CallSetChaperoneArea, Area: &Area{Width: width, Height: height}})
}

func (r *Recorder) SetBattery(deviceID uint64, gaugeValue float32, isPlugged bool) {
	r.next.SetBattery(deviceID, gaugeValue, isPlugged)
	r.record(Call{Kind: CallSetBattery, Battery: &BatteryState{
		DeviceID:  deviceID,
		Gauge:     gaugeValue,
		IsPlugged: isPlugged,
	}})
}

func (r *Recorder) SetViewsConfig(cfg ViewsConfig) {
	r.next.SetViewsConfig(cfg)
	r.record(Call{Kind: CallSetViewsConfig, Views: &cfg})
}

func (r *Recorder) RequestIDR() {
	r.next.RequestIDR()
	r.record(Call{Kind: CallRequestIDR})
}

func (r *Recorder) ShutdownRuntime() {
	r.next.ShutdownRuntime()
	r.record(Call{Kind: CallShutdownRuntime})
}

func (r *Recorder) SetProperty(deviceID uint64, name string, value any) {
	if r.devices != nil {
		r.devices.SetProperty(deviceID, name, value)
	}
	r.record(Call{Kind: CallSetProperty, Property: &Property{DeviceID: deviceID, Name: name, Value: value}})
}

func (r *Recorder) RegisterButton(deviceID uint64, buttonID uint64) {
	if r.devices != nil {
		r.devices.RegisterButton(deviceID, buttonID)
	}
	r.record(Call{Kind: CallRegisterButton, Button: &Button{DeviceID: deviceID, ButtonID: buttonID}})
}
