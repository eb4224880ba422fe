package datalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hydrolab/ph_node/internal/reading"
)

// Logger appends probe samples to a per-session text file.
type Logger struct {
	f *os.File
}

// Create opens a new session file under dir, named after the session
// start time, and writes the header block. The directory is created
// when missing.
func Create(dir string, now time.Time) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	stamp := now.Format("20060102_15_04_05")
	path := filepath.Join(dir, "data_"+stamp+".txt")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create data log: %w", err)
	}

	header := "# wireless pH sensor data log\n" +
		"# Date: " + stamp + "\n" +
		"# Temperature (C), Relative Humidity (%)," +
		" Voltage of Ag/AgCl electrode (mV)," +
		" Voltage of pH electrode (mV)," +
		" Voltage difference (mV)," +
		" Evaluated pH Value\n" +
		"# \n"
	if _, err := f.WriteString(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write data log header: %w", err)
	}

	return &Logger{f: f}, nil
}

// Append writes one sample row.
func (l *Logger) Append(r reading.Reading, phValue float64) error {
	_, err := fmt.Fprintf(l.f, "%d    %d    %.4f    %.4f    %.4f    %.2f\n",
		r.TemperatureC, r.HumidityPct,
		r.RefMillivolts, r.PHMillivolts,
		r.ProbeMillivolts(), phValue)
	return err
}

// Path returns the session file path.
func (l *Logger) Path() string {
	return l.f.Name()
}

func (l *Logger) Close() error {
	return l.f.Close()
}
