// Package devices describes the tracked devices the driver exposes to the
// host: their ids, serial numbers, properties and input bindings.
package devices

import (
	"hash/fnv"

	"github.com/streamvr/server/internal/config"
)

const (
	HeadPath      = "/user/head"
	LeftHandPath  = "/user/hand/left"
	RightHandPath = "/user/hand/right"
)

type Class int

const (
	ClassHMD Class = iota
	ClassController
)

// ID derives the stable device id for a path.
func ID(path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return h.Sum64()
}

var (
	HeadID      = ID(HeadPath)
	LeftHandID  = ID(LeftHandPath)
	RightHandID = ID(RightHandPath)
)

// Property is a single key/value the host attaches to a device.
type Property struct {
	Name  string
	Value any
}

type Device struct {
	ID      uint64
	Path    string
	Class   Class
	Serial  string
	Buttons []uint64
}

var handButtonPaths = map[string][]string{
	LeftHandPath: {
		"/user/hand/left/input/x/click",
		"/user/hand/left/input/y/click",
		"/user/hand/left/input/menu/click",
		"/user/hand/left/input/trigger/value",
		"/user/hand/left/input/squeeze/value",
		"/user/hand/left/input/thumbstick/x",
		"/user/hand/left/input/thumbstick/y",
		"/user/hand/left/input/thumbstick/click",
	},
	RightHandPath: {
		"/user/hand/right/input/a/click",
		"/user/hand/right/input/b/click",
		"/user/hand/right/input/system/click",
		"/user/hand/right/input/trigger/value",
		"/user/hand/right/input/squeeze/value",
		"/user/hand/right/input/thumbstick/x",
		"/user/hand/right/input/thumbstick/y",
		"/user/hand/right/input/thumbstick/click",
	},
}

// Registry is an immutable table of the devices the driver exposes. It is
// safe for concurrent use.
type Registry struct {
	devices      map[uint64]*Device
	manufacturer string
	model        string
	refreshRate  float32
}

func NewRegistry(headset config.HeadsetConfig, video config.VideoConfig) *Registry {
	r := &Registry{
		devices:      make(map[uint64]*Device, 3),
		manufacturer: headset.Manufacturer,
		model:        headset.Model,
		refreshRate:  video.RefreshRate,
	}
	r.add(HeadPath, ClassHMD, headset.Serial)
	r.add(LeftHandPath, ClassController, headset.Serial+"-left")
	r.add(RightHandPath, ClassController, headset.Serial+"-right")
	return r
}

func (r *Registry) add(path string, class Class, serial string) {
	d := &Device{ID: ID(path), Path: path, Class: class, Serial: serial}
	for _, p := range handButtonPaths[path] {
		d.Buttons = append(d.Buttons, ID(p))
	}
	r.devices[d.ID] = d
}

// Lookup returns the device with the given id.
func (r *Registry) Lookup(id uint64) (*Device, bool) {
	d, ok := r.devices[id]
	return d, ok
}

// Serial returns the serial number of a device, or "" for unknown ids.
func (r *Registry) Serial(id uint64) string {
	if d, ok := r.devices[id]; ok {
		return d.Serial
	}
	return ""
}

// Props lists the properties to publish for a device. Unknown ids have none.
func (r *Registry) Props(id uint64) []Property {
	d, ok := r.devices[id]
	if !ok {
		return nil
	}
	props := []Property{
		{Name: "tracking_system_name", Value: "streamvr"},
		{Name: "manufacturer_name", Value: r.manufacturer},
		{Name: "serial_number", Value: d.Serial},
	}
	switch d.Class {
	case ClassHMD:
		props = append(props,
			Property{Name: "model_number", Value: r.model},
			Property{Name: "display_frequency", Value: r.refreshRate},
		)
	case ClassController:
		role := "left_hand"
		if d.Path == RightHandPath {
			role = "right_hand"
		}
		props = append(props,
			Property{Name: "model_number", Value: r.model + " Controller"},
			Property{Name: "controller_role", Value: role},
		)
	}
	return props
}

// Buttons returns the input ids to register for a device.
func (r *Registry) Buttons(id uint64) []uint64 {
	if d, ok := r.devices[id]; ok {
		return d.Buttons
	}
	return nil
}
