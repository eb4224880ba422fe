package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `# ph_node test config
MQTT_BROKER=tcp://localhost:1883
MQTT_CLIENT_ID_RECEIVER=ph-receiver

TOPIC_READING=ph/reading
TOPIC_PH=ph/value

DHT11_PIN=GPIO4
ADC_I2C_BUS=1
ADC_I2C_ADDR=0x48

WIRED_SERIAL_PORT=/dev/ttyUSB0
WIRELESS_SERIAL_PORT=/dev/ttyAMA0
SINK_BAUD_RATE=9600

RECEIVER_SERIAL_PORT=/dev/rfcomm0
RECEIVER_BAUD_RATE=9600
DATA_DIR=data
CALIBRATION_FILE=ph.json
WINDOW_SIZE=10

SAMPLE_INTERVAL_MS=1000
WEB_SERVER_PORT=8080
DISPLAY_UPDATE_INTERVAL=500
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phnode_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "ph/reading", cfg.TopicReading)
	assert.Equal(t, "GPIO4", cfg.DHT11Pin)
	assert.Equal(t, uint16(0x48), cfg.ADCI2CAddr)
	assert.Equal(t, "/dev/ttyUSB0", cfg.WiredSerialPort)
	assert.Equal(t, "/dev/ttyAMA0", cfg.WirelessSerialPort)
	assert.Equal(t, 9600, cfg.SinkBaudRate)
	assert.Equal(t, 1000, cfg.SampleIntervalMS)
	assert.Equal(t, 10, cfg.WindowSize)
	assert.Equal(t, 500, cfg.DisplayUpdateInterval)
}

func TestLoadMissingRequiredKey(t *testing.T) {
	// Drop the MQTT broker line, keep everything else.
	contents := ""
	for _, line := range []string{
		"DHT11_PIN=GPIO4",
		"WIRED_SERIAL_PORT=/dev/ttyUSB0",
		"WIRELESS_SERIAL_PORT=/dev/ttyAMA0",
		"SINK_BAUD_RATE=9600",
		"SAMPLE_INTERVAL_MS=1000",
		"RECEIVER_SERIAL_PORT=/dev/rfcomm0",
		"RECEIVER_BAUD_RATE=9600",
	} {
		contents += line + "\n"
	}

	_, err := Load(writeConfig(t, contents))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT_BROKER")
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+"BOGUS_KEY=1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOGUS_KEY")
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, err := Load(writeConfig(t, "MQTT_BROKER tcp://localhost:1883\n"))
	assert.Error(t, err)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "bad baud", line: "SINK_BAUD_RATE=fast"},
		{name: "bad addr", line: "ADC_I2C_ADDR=zz"},
		{name: "zero window", line: "WINDOW_SIZE=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, validConfig+tt.line+"\n"))
			assert.Error(t, err)
		})
	}
}
