package reading

import (
	"fmt"
	"strconv"
	"strings"
)

// LSBMillivolts is the ADS1115 resolution at the ±6.144 V full-scale
// range: one raw count equals 0.1875 mV.
const LSBMillivolts = 0.1875

// Millivolts converts a raw ADS1115 conversion code to millivolts.
func Millivolts(raw int16) float64 {
	return float64(raw) * LSBMillivolts
}

// Reading is one probe sample: DHT11 climate plus the two electrode
// voltages, suitable for JSON and MQTT.
type Reading struct {
	TemperatureC int `json:"temp_c"`
	HumidityPct  int `json:"humidity_pct"`

	RefMillivolts float64 `json:"ref_mv"` // Ag/AgCl reference electrode
	PHMillivolts  float64 `json:"ph_mv"`  // pH electrode
}

// ProbeMillivolts is the galvanic voltage of the probe: the pH
// electrode measured against the reference electrode.
func (r Reading) ProbeMillivolts() float64 {
	return r.PHMillivolts - r.RefMillivolts
}

// FormatRecord renders the serial wire format: four space-separated
// fields, voltages with four decimals, newline-terminated.
func FormatRecord(r Reading) string {
	return fmt.Sprintf("%d %d %.4f %.4f\n",
		r.TemperatureC, r.HumidityPct, r.RefMillivolts, r.PHMillivolts)
}

// ParseRecord parses one wire-format line back into a Reading. Lines
// that do not have exactly four numeric fields are rejected.
func ParseRecord(line string) (Reading, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Reading{}, fmt.Errorf("record has %d fields, want 4: %q", len(fields), line)
	}

	temp, err := strconv.Atoi(fields[0])
	if err != nil {
		return Reading{}, fmt.Errorf("temperature field %q: %w", fields[0], err)
	}
	hum, err := strconv.Atoi(fields[1])
	if err != nil {
		return Reading{}, fmt.Errorf("humidity field %q: %w", fields[1], err)
	}
	ref, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("reference voltage field %q: %w", fields[2], err)
	}
	ph, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("pH voltage field %q: %w", fields[3], err)
	}

	return Reading{
		TemperatureC:  temp,
		HumidityPct:   hum,
		RefMillivolts: ref,
		PHMillivolts:  ph,
	}, nil
}
