package ph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateDefaultCalibration(t *testing.T) {
	cal := DefaultCalibration()

	// At the calibration temperature (300 K = 26.85 °C) the default
	// slope is 60 mV per pH unit on both branches.
	tests := []struct {
		name    string
		probeMV float64
		tempC   float64
		want    float64
	}{
		{name: "neutral", probeMV: 0, tempC: 26.85, want: 7},
		{name: "acid one unit", probeMV: 60, tempC: 26.85, want: 6},
		{name: "acid three units", probeMV: 180, tempC: 26.85, want: 4},
		{name: "alkaline one unit", probeMV: -60, tempC: 26.85, want: 8},
		{name: "alkaline three units", probeMV: -180, tempC: 26.85, want: 10},
		{name: "clamped acid", probeMV: 600, tempC: 26.85, want: 0},
		{name: "clamped alkaline", probeMV: -600, tempC: 26.85, want: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cal.Evaluate(tt.probeMV, tt.tempC), 0.01)
		})
	}
}

func TestEvaluateTemperatureCompensation(t *testing.T) {
	cal := DefaultCalibration()

	// Warmer water steepens the slope, so the same voltage reads
	// closer to neutral than at the calibration temperature.
	cold := cal.Evaluate(60, 26.85)
	warm := cal.Evaluate(60, 50)
	assert.Less(t, cold, warm)
	assert.InDelta(t, 7.0, cal.Evaluate(0, 50), 0.01, "zero offset is neutral at any temperature")
}

func TestEvaluateAsymmetricSlopes(t *testing.T) {
	cal := DefaultCalibration()
	cal.PH4MV = 150  // 50 mV/pH acid
	cal.PH10MV = -90 // 30 mV/pH alkaline

	assert.InDelta(t, 6.0, cal.Evaluate(50, 26.85), 0.01)
	assert.InDelta(t, 8.0, cal.Evaluate(-30, 26.85), 0.01)
}

func TestCapture(t *testing.T) {
	cal := DefaultCalibration()

	cal.CapturePH7(12.345, 25.0)
	cal.CapturePH4(182.5)
	cal.CapturePH10(-171.218)

	assert.InDelta(t, 12.35, cal.PH7MV, 1e-9)
	assert.InDelta(t, 298.15, cal.TempK, 1e-9)
	assert.InDelta(t, 182.5, cal.PH4MV, 1e-9)
	assert.InDelta(t, -171.22, cal.PH10MV, 1e-9)
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ph.json")

	cal, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultCalibration(), cal)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ph7_cal"`)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ph.json")

	in := Calibration{Equation: DefaultEquation, PH7MV: 3.2, PH4MV: 177.9, PH10MV: -168.4, TempK: 295.3}
	require.NoError(t, in.Save(path))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWindow(t *testing.T) {
	w := NewWindow(4)
	assert.InDelta(t, 0.0, w.Mean(), 1e-9)

	w.Push(4)
	assert.InDelta(t, 1.0, w.Mean(), 1e-9, "zero-filled start pulls the mean down")

	w.Push(4)
	w.Push(4)
	w.Push(4)
	assert.InDelta(t, 4.0, w.Mean(), 1e-9)

	w.Push(8)
	assert.InDelta(t, 5.0, w.Mean(), 1e-9, "oldest sample dropped")
}
