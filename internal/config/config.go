package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDReceiver string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicReading   string
	TopicPH        string
	TopicCalibrate string

	// Probe hardware
	DHT11Pin   string // GPIO pin name, e.g. "GPIO4"
	ADCI2CBus  string // empty selects the first available bus
	ADCI2CAddr uint16 // ADS1115 address, default 0x48

	// Probe serial sinks
	WiredSerialPort    string
	WirelessSerialPort string
	SinkBaudRate       int

	// Receiver
	ReceiverSerialPort string
	ReceiverBaudRate   int
	DataDir            string
	CalibrationFile    string
	WindowSize         int

	// Timing
	SampleIntervalMS int

	// Web server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify config
//     without going through InitGlobal/Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: RWMutex; write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_RECEIVER":
		c.MQTTClientIDReceiver = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_READING":
		c.TopicReading = value
	case "TOPIC_PH":
		c.TopicPH = value
	case "TOPIC_CALIBRATE":
		c.TopicCalibrate = value

	// Probe hardware
	case "DHT11_PIN":
		c.DHT11Pin = value
	case "ADC_I2C_BUS":
		c.ADCI2CBus = value
	case "ADC_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid ADC_I2C_ADDR %q: %w", value, err)
		}
		c.ADCI2CAddr = uint16(addr)

	// Probe serial sinks
	case "WIRED_SERIAL_PORT":
		c.WiredSerialPort = value
	case "WIRELESS_SERIAL_PORT":
		c.WirelessSerialPort = value
	case "SINK_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SINK_BAUD_RATE %q: %w", value, err)
		}
		c.SinkBaudRate = rate

	// Receiver
	case "RECEIVER_SERIAL_PORT":
		c.ReceiverSerialPort = value
	case "RECEIVER_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RECEIVER_BAUD_RATE %q: %w", value, err)
		}
		c.ReceiverBaudRate = rate
	case "DATA_DIR":
		c.DataDir = value
	case "CALIBRATION_FILE":
		c.CalibrationFile = value
	case "WINDOW_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WINDOW_SIZE %q: %w", value, err)
		}
		if size < 1 {
			return fmt.Errorf("WINDOW_SIZE must be >= 1, got %d", size)
		}
		c.WindowSize = size

	// Timing
	case "SAMPLE_INTERVAL_MS":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL_MS %q: %w", value, err)
		}
		c.SampleIntervalMS = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.DHT11Pin == "" {
		return fmt.Errorf("DHT11_PIN is required")
	}
	if c.WiredSerialPort == "" {
		return fmt.Errorf("WIRED_SERIAL_PORT is required")
	}
	if c.WirelessSerialPort == "" {
		return fmt.Errorf("WIRELESS_SERIAL_PORT is required")
	}
	if c.SinkBaudRate == 0 {
		return fmt.Errorf("SINK_BAUD_RATE is required")
	}
	if c.SampleIntervalMS == 0 {
		return fmt.Errorf("SAMPLE_INTERVAL_MS is required")
	}
	if c.ReceiverSerialPort == "" {
		return fmt.Errorf("RECEIVER_SERIAL_PORT is required")
	}
	if c.ReceiverBaudRate == 0 {
		return fmt.Errorf("RECEIVER_BAUD_RATE is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once so this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
