package ph

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// DefaultEquation documents the probe model stored alongside the
// calibration points.
const DefaultEquation = "E = k1*T - k2*T*(pH - pH7)"

// Calibration of the potentiometric probe. The electrode voltage
// follows E = k1*T - k2*T*(pH - 7); three buffer measurements pin the
// offset (pH 7) and the acid and alkaline slopes (pH 4 and pH 10).
// Voltages are in mV, the calibration temperature in Kelvin. JSON
// field names match the on-disk ph.json layout.
type Calibration struct {
	Equation string  `json:"Equations"`
	PH7MV    float64 `json:"ph7_cal"`
	PH4MV    float64 `json:"ph4_cal"`
	PH10MV   float64 `json:"ph10_cal"`
	TempK    float64 `json:"T"`
}

// DefaultCalibration is an ideal probe at 300 K: zero offset at pH 7
// and 60 mV per pH unit on both branches.
func DefaultCalibration() Calibration {
	return Calibration{
		Equation: DefaultEquation,
		PH7MV:    0,
		PH4MV:    180,
		PH10MV:   -180,
		TempK:    300,
	}
}

// Load reads the calibration file. A missing file is created with
// defaults so a fresh install starts with a usable probe model.
func Load(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cal := DefaultCalibration()
		if err := cal.Save(path); err != nil {
			return Calibration{}, err
		}
		return cal, nil
	}
	if err != nil {
		return Calibration{}, fmt.Errorf("read calibration: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return Calibration{}, fmt.Errorf("parse calibration %s: %w", path, err)
	}
	return cal, nil
}

// Save writes the calibration file.
func (c Calibration) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal calibration: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write calibration %s: %w", path, err)
	}
	return nil
}

// Evaluate converts a probe voltage to a pH value at the given water
// temperature. The stored offset and slope scale linearly with
// absolute temperature, so both are compensated from the calibration
// temperature to the current one. The result is clamped to the 0–14
// scale.
func (c Calibration) Evaluate(probeMV, tempC float64) float64 {
	tK := tempC + 273.15

	deltaMV := probeMV - c.PH7MV/c.TempK*tK

	// mV per pH unit at the current temperature; the acid and alkaline
	// branches of a real electrode have slightly different slopes.
	var slope float64
	if deltaMV >= 0 {
		slope = (c.PH4MV - c.PH7MV) / 3.0 / c.TempK * tK
	} else {
		slope = (c.PH7MV - c.PH10MV) / 3.0 / c.TempK * tK
	}

	v := math.Round((7-deltaMV/slope)*100) / 100
	switch {
	case v < 0:
		return 0
	case v > 14:
		return 14
	default:
		return v
	}
}

// CapturePH7 stores the current probe voltage as the pH 7 offset and
// the current water temperature as the calibration temperature.
func (c *Calibration) CapturePH7(probeMV, tempC float64) {
	c.PH7MV = round2(probeMV)
	c.TempK = round2(tempC) + 273.15
}

// CapturePH4 stores the current probe voltage as the pH 4 (acid
// branch) calibration point.
func (c *Calibration) CapturePH4(probeMV float64) {
	c.PH4MV = round2(probeMV)
}

// CapturePH10 stores the current probe voltage as the pH 10 (alkaline
// branch) calibration point.
func (c *Calibration) CapturePH10(probeMV float64) {
	c.PH10MV = round2(probeMV)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
