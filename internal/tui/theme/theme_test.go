package theme

import "testing"

func TestBatteryColor(t *testing.T) {
	tests := []struct {
		gauge float32
		want  string
	}{
		{1, string(ColorBatteryHigh)},
		{0.51, string(ColorBatteryHigh)},
		{0.5, string(ColorBatteryMid)},
		{0.2, string(ColorBatteryMid)},
		{0.19, string(ColorBatteryLow)},
		{0, string(ColorBatteryLow)},
	}
	for _, tt := range tests {
		if got := string(BatteryColor(tt.gauge)); got != tt.want {
			t.Errorf("BatteryColor(%v) = %s, want %s", tt.gauge, got, tt.want)
		}
	}
}

func TestCallColor(t *testing.T) {
	if CallColor("request_driver_resync") != ColorRecovery {
		t.Error("resync should use the recovery color")
	}
	if CallColor("set_battery") != ColorDevice {
		t.Error("battery should use the device color")
	}
	if CallColor("something_new") != ColorDimmed {
		t.Error("unknown kinds should be dimmed")
	}
}
