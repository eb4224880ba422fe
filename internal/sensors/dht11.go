package sensors

import (
	"fmt"
	"time"

	"github.com/hydrolab/ph_node/internal/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ClimateSensor reads ambient temperature and relative humidity at the
// sensor's native whole-degree / whole-percent resolution.
type ClimateSensor interface {
	Sense() (tempC, humidityPct int, err error)
}

type dht11 struct {
	pin gpio.PinIO
}

// NewDHT11 binds the DHT11 to the configured GPIO pin. The binding is
// created once at startup and lives for the process lifetime.
func NewDHT11() (ClimateSensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("DHT11: periph host init: %w", err)
	}

	cfg := config.Get()
	pin := gpioreg.ByName(cfg.DHT11Pin)
	if pin == nil {
		return nil, fmt.Errorf("DHT11: GPIO pin %q not found", cfg.DHT11Pin)
	}

	// Idle state is high via pull-up.
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("DHT11: pin setup (%s): %w", cfg.DHT11Pin, err)
	}

	return &dht11{pin: pin}, nil
}

// Sense runs one single-wire transaction: host start pulse, sensor
// response, then a 40-bit frame (humidity, temperature, checksum).
// Checksum mismatches and timing violations are returned as errors;
// both are transient and the caller is expected to retry next cycle.
func (d *dht11) Sense() (int, int, error) {
	// Start signal: hold the line low for at least 18 ms, then release
	// and let the pull-up take it high.
	if err := d.pin.Out(gpio.Low); err != nil {
		return 0, 0, fmt.Errorf("DHT11: start pulse: %w", err)
	}
	time.Sleep(18 * time.Millisecond)
	if err := d.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return 0, 0, fmt.Errorf("DHT11: release line: %w", err)
	}

	// Sensor response: ~80 µs low, ~80 µs high, then the first bit's
	// low preamble.
	if _, err := d.waitFor(gpio.Low, time.Millisecond); err != nil {
		return 0, 0, fmt.Errorf("DHT11: no response: %w", err)
	}
	if _, err := d.waitFor(gpio.High, time.Millisecond); err != nil {
		return 0, 0, fmt.Errorf("DHT11: response preamble: %w", err)
	}
	if _, err := d.waitFor(gpio.Low, time.Millisecond); err != nil {
		return 0, 0, fmt.Errorf("DHT11: first bit preamble: %w", err)
	}

	// 40 data bits. Each bit is a ~50 µs low followed by a high whose
	// width encodes the value: ~26 µs for 0, ~70 µs for 1.
	var frame [5]byte
	for i := 0; i < 40; i++ {
		if _, err := d.waitFor(gpio.High, time.Millisecond); err != nil {
			return 0, 0, fmt.Errorf("DHT11: bit %d low phase: %w", i, err)
		}
		high, err := d.waitFor(gpio.Low, time.Millisecond)
		if err != nil {
			return 0, 0, fmt.Errorf("DHT11: bit %d high phase: %w", i, err)
		}
		if high > 50*time.Microsecond {
			frame[i/8] |= 1 << (7 - uint(i%8))
		}
	}

	sum := frame[0] + frame[1] + frame[2] + frame[3]
	if sum != frame[4] {
		return 0, 0, fmt.Errorf("DHT11: checksum mismatch (got 0x%02X, want 0x%02X)", frame[4], sum)
	}

	// DHT11 reports whole units; the decimal bytes stay zero.
	return int(frame[2]), int(frame[0]), nil
}

// waitFor busy-polls until the line reaches level, returning how long
// the previous level lasted. Bit widths are tens of microseconds, too
// short for edge-driven reads from userspace.
func (d *dht11) waitFor(level gpio.Level, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	for d.pin.Read() != level {
		if elapsed := time.Since(start); elapsed > timeout {
			return elapsed, fmt.Errorf("timeout waiting for line %s", level)
		}
	}
	return time.Since(start), nil
}
