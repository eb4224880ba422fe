package sensors

import (
	"fmt"

	"github.com/hydrolab/ph_node/internal/config"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// ElectrodeReader samples both probe electrodes as signed 16-bit
// ADS1115 conversion codes.
type ElectrodeReader interface {
	Sample() (ref, ph int16, err error)
	Close() error
}

// Electrode wiring on the ADS1115: reference electrode (Ag/AgCl) on
// AIN1, pH electrode on AIN3. AIN0 and AIN2 are spare inputs.
const (
	refChannel = ads1x15.Channel1
	phChannel  = ads1x15.Channel3
)

// fullScale selects the ±6.144 V input range, which gives the
// 0.1875 mV/LSB resolution the record format is defined against.
const fullScale = 6144 * physic.MilliVolt

const dataRate = 128 * physic.Hertz

type electrodePair struct {
	bus i2c.BusCloser
	ref ads1x15.PinADC
	ph  ads1x15.PinADC
}

// NewElectrodeReader opens the configured I²C bus and sets up both
// single-ended channels on the ADS1115.
func NewElectrodeReader() (ElectrodeReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ADS1115: periph host init: %w", err)
	}

	cfg := config.Get()
	bus, err := i2creg.Open(cfg.ADCI2CBus)
	if err != nil {
		return nil, fmt.Errorf("ADS1115: i2c open (%q): %w", cfg.ADCI2CBus, err)
	}

	addr := cfg.ADCI2CAddr
	if addr == 0 {
		addr = 0x48
	}

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ADS1115: device init (addr 0x%02X): %w", addr, err)
	}

	refPin, err := adc.PinForChannel(refChannel, fullScale, dataRate, ads1x15.BestQuality)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ADS1115: reference channel setup: %w", err)
	}
	phPin, err := adc.PinForChannel(phChannel, fullScale, dataRate, ads1x15.BestQuality)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("ADS1115: pH channel setup: %w", err)
	}

	return &electrodePair{bus: bus, ref: refPin, ph: phPin}, nil
}

// Sample requests one single-ended conversion per channel and returns
// the raw codes. Voltage conversion is left to the caller so the
// ×0.1875 mV contract holds exactly.
func (e *electrodePair) Sample() (int16, int16, error) {
	refSample, err := e.ref.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("ADS1115: reference electrode read: %w", err)
	}
	phSample, err := e.ph.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("ADS1115: pH electrode read: %w", err)
	}
	return int16(refSample.Raw), int16(phSample.Raw), nil
}

func (e *electrodePair) Close() error {
	e.ref.Halt()
	e.ph.Halt()
	return e.bus.Close()
}
