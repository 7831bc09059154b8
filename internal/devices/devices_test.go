package devices

import (
	"testing"

	"github.com/streamvr/server/internal/config"
)

func testRegistry() *Registry {
	return NewRegistry(
		config.HeadsetConfig{Serial: "SN1", Manufacturer: "Acme", Model: "Visor"},
		config.VideoConfig{RefreshRate: 72},
	)
}

func TestIDStableAndDistinct(t *testing.T) {
	if ID(HeadPath) != HeadID {
		t.Error("ID should be deterministic")
	}
	ids := map[uint64]string{}
	for _, p := range []string{HeadPath, LeftHandPath, RightHandPath} {
		id := ID(p)
		if other, dup := ids[id]; dup {
			t.Fatalf("%s collides with %s", p, other)
		}
		ids[id] = p
	}
}

func TestSerial(t *testing.T) {
	r := testRegistry()
	tests := []struct {
		id   uint64
		want string
	}{
		{HeadID, "SN1"},
		{LeftHandID, "SN1-left"},
		{RightHandID, "SN1-right"},
		{12345, ""},
	}
	for _, tt := range tests {
		if got := r.Serial(tt.id); got != tt.want {
			t.Errorf("Serial(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func propMap(props []Property) map[string]any {
	m := make(map[string]any, len(props))
	for _, p := range props {
		m[p.Name] = p.Value
	}
	return m
}

func TestPropsHMD(t *testing.T) {
	props := propMap(testRegistry().Props(HeadID))
	if props["serial_number"] != "SN1" {
		t.Errorf("serial_number = %v", props["serial_number"])
	}
	if props["model_number"] != "Visor" {
		t.Errorf("model_number = %v", props["model_number"])
	}
	if props["display_frequency"] != float32(72) {
		t.Errorf("display_frequency = %v", props["display_frequency"])
	}
	if _, ok := props["controller_role"]; ok {
		t.Error("HMD should not have a controller role")
	}
}

func TestPropsControllers(t *testing.T) {
	r := testRegistry()
	if got := propMap(r.Props(LeftHandID))["controller_role"]; got != "left_hand" {
		t.Errorf("left role = %v", got)
	}
	if got := propMap(r.Props(RightHandID))["controller_role"]; got != "right_hand" {
		t.Errorf("right role = %v", got)
	}
	if r.Props(999) != nil {
		t.Error("unknown device should have no props")
	}
}

func TestButtons(t *testing.T) {
	r := testRegistry()
	if n := len(r.Buttons(HeadID)); n != 0 {
		t.Errorf("HMD has %d buttons, want 0", n)
	}
	left := r.Buttons(LeftHandID)
	if len(left) != 8 {
		t.Fatalf("left hand has %d buttons, want 8", len(left))
	}
	if left[0] != ID("/user/hand/left/input/x/click") {
		t.Error("button ids should be derived from input paths")
	}
	if r.Buttons(999) != nil {
		t.Error("unknown device should have no buttons")
	}
}

func TestLookup(t *testing.T) {
	d, ok := testRegistry().Lookup(RightHandID)
	if !ok {
		t.Fatal("right hand not found")
	}
	if d.Path != RightHandPath || d.Class != ClassController {
		t.Errorf("Lookup = %+v", d)
	}
}
