package reading

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMillivolts(t *testing.T) {
	tests := []struct {
		name string
		raw  int16
		want float64
	}{
		{name: "zero code", raw: 0, want: 0.0},
		{name: "one LSB", raw: 1, want: 0.1875},
		{name: "positive mid-scale", raw: 16000, want: 3000.0},
		{name: "negative mid-scale", raw: -16000, want: -3000.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Millivolts(tt.raw), 1e-9)
		})
	}
}

func TestFormatRecord(t *testing.T) {
	r := Reading{
		TemperatureC:  24,
		HumidityPct:   55,
		RefMillivolts: Millivolts(3267),
		PHMillivolts:  Millivolts(10000),
	}

	line := FormatRecord(r)
	assert.Equal(t, "24 55 612.5625 1875.0000\n", line)

	fields := strings.Fields(line)
	require.Len(t, fields, 4)
	for _, f := range fields[2:] {
		parts := strings.Split(f, ".")
		require.Len(t, parts, 2)
		assert.Len(t, parts[1], 4, "voltage field %q must have 4 decimals", f)
	}
}

func TestParseRecord(t *testing.T) {
	r, err := ParseRecord("24 55 612.5000 1875.0000\n")
	require.NoError(t, err)
	assert.Equal(t, 24, r.TemperatureC)
	assert.Equal(t, 55, r.HumidityPct)
	assert.InDelta(t, 612.5, r.RefMillivolts, 1e-9)
	assert.InDelta(t, 1875.0, r.PHMillivolts, 1e-9)
	assert.InDelta(t, 1262.5, r.ProbeMillivolts(), 1e-9)
}

func TestParseRecordRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "empty", line: ""},
		{name: "too few fields", line: "24 55 612.5000"},
		{name: "too many fields", line: "24 55 612.5000 1875.0000 9.99"},
		{name: "non-numeric temperature", line: "warm 55 612.5000 1875.0000"},
		{name: "non-numeric humidity", line: "24 humid 612.5000 1875.0000"},
		{name: "non-numeric voltage", line: "24 55 x 1875.0000"},
		{name: "diagnostic line", line: "Read DHT11 failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.line)
			assert.Error(t, err)
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	in := Reading{TemperatureC: -3, HumidityPct: 81, RefMillivolts: -0.1875, PHMillivolts: 3000}
	out, err := ParseRecord(FormatRecord(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
