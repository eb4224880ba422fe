package app

import (
	"fmt"
	"io"
	"log"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/hydrolab/ph_node/internal/config"
	"github.com/hydrolab/ph_node/internal/reading"
	"github.com/hydrolab/ph_node/internal/sensors"
)

// Diagnostic lines emitted on acquisition failure. The receiver
// discards them as malformed records.
const (
	dhtFailLine = "Read DHT11 failed\n"
	adcFailLine = "Read ADS1115 failed\n"
)

// Probe owns both device bindings and both serial sinks for the
// acquire-format-transmit cycle. Everything is set once at startup;
// nothing here is shared with another goroutine.
type Probe struct {
	Climate    sensors.ClimateSensor
	Electrodes sensors.ElectrodeReader
	Wired      io.Writer
	Wireless   io.Writer
	Interval   time.Duration

	sleep func(time.Duration) // time.Sleep, replaceable in tests
}

// NewProbe assembles a probe around already-opened devices and sinks.
func NewProbe(climate sensors.ClimateSensor, electrodes sensors.ElectrodeReader, wired, wireless io.Writer, interval time.Duration) *Probe {
	return &Probe{
		Climate:    climate,
		Electrodes: electrodes,
		Wired:      wired,
		Wireless:   wireless,
		Interval:   interval,
		sleep:      time.Sleep,
	}
}

// Run executes cycles forever. The loop never terminates on its own;
// the device runs unattended until power-off.
func (p *Probe) Run() error {
	for {
		p.runCycle()
	}
}

// runCycle performs one acquire → convert → format → transmit → pace
// pass. On acquisition failure the diagnostic goes to both sinks and
// the pacing delay is skipped, so the next attempt starts immediately.
func (p *Probe) runCycle() {
	tempC, humidity, err := p.Climate.Sense()
	if err != nil {
		log.Printf("probe: climate read error: %v", err)
		p.emit(dhtFailLine)
		return
	}

	rawRef, rawPH, err := p.Electrodes.Sample()
	if err != nil {
		log.Printf("probe: electrode read error: %v", err)
		p.emit(adcFailLine)
		return
	}

	r := reading.Reading{
		TemperatureC:  tempC,
		HumidityPct:   humidity,
		RefMillivolts: reading.Millivolts(rawRef),
		PHMillivolts:  reading.Millivolts(rawPH),
	}
	p.emit(reading.FormatRecord(r))
	p.sleep(p.Interval)
}

// emit writes the same bytes to both sinks. Writes are fire-and-forget:
// a sink error is logged and the other sink still gets the line.
func (p *Probe) emit(line string) {
	payload := []byte(line)
	if _, err := p.Wired.Write(payload); err != nil {
		log.Printf("probe: wired sink write error: %v", err)
	}
	if _, err := p.Wireless.Write(payload); err != nil {
		log.Printf("probe: wireless sink write error: %v", err)
	}
}

// RunProbeProducer opens the real hardware per the loaded config and
// runs the sampling loop.
func RunProbeProducer() error {
	cfg := config.Get()

	climate, err := sensors.NewDHT11()
	if err != nil {
		return err
	}

	electrodes, err := sensors.NewElectrodeReader()
	if err != nil {
		return err
	}
	defer electrodes.Close()

	wired, err := openSink(cfg.WiredSerialPort, cfg.SinkBaudRate)
	if err != nil {
		return fmt.Errorf("wired sink open (%s): %w", cfg.WiredSerialPort, err)
	}
	defer wired.Close()
	log.Printf("probe: wired sink opened on %s at %d baud", cfg.WiredSerialPort, cfg.SinkBaudRate)

	wireless, err := openSink(cfg.WirelessSerialPort, cfg.SinkBaudRate)
	if err != nil {
		return fmt.Errorf("wireless sink open (%s): %w", cfg.WirelessSerialPort, err)
	}
	defer wireless.Close()
	log.Printf("probe: wireless sink opened on %s at %d baud", cfg.WirelessSerialPort, cfg.SinkBaudRate)

	interval := time.Duration(cfg.SampleIntervalMS) * time.Millisecond
	log.Printf("probe: sampling every %v", interval)

	return NewProbe(climate, electrodes, wired, wireless, interval).Run()
}

func openSink(port string, baud int) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:        port,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
}
