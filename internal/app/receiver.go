package app

import (
	"bufio"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/hydrolab/ph_node/internal/config"
	"github.com/hydrolab/ph_node/internal/datalog"
	"github.com/hydrolab/ph_node/internal/ph"
	"github.com/hydrolab/ph_node/internal/reading"
)

// phPayload is the JSON schema published on the pH topic.
type phPayload struct {
	PH      float64 `json:"ph"`
	ProbeMV float64 `json:"probe_mv"`
	TempC   float64 `json:"temp_c"`
	Time    string  `json:"time"`
}

// RunReceiver opens the paired serial port, parses probe records,
// evaluates pH against the stored calibration, appends every sample to
// the session data log, and republishes both the raw reading and the
// evaluated pH over MQTT.
//
// Calibration captures arrive on the calibrate topic as one of "ph7",
// "ph4" or "ph10"; each stores the current window mean and saves the
// calibration file, mirroring the three buffer-solution steps.
func RunReceiver() error {
	cfg := config.Get()

	topicReading := cfg.TopicReading
	if topicReading == "" {
		topicReading = "ph/reading"
	}
	topicPH := cfg.TopicPH
	if topicPH == "" {
		topicPH = "ph/value"
	}
	topicCal := cfg.TopicCalibrate
	if topicCal == "" {
		topicCal = "ph/calibrate"
	}
	calFile := cfg.CalibrationFile
	if calFile == "" {
		calFile = "ph.json"
	}
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = 10
	}
	clientID := cfg.MQTTClientIDReceiver
	if clientID == "" {
		clientID = "ph-receiver"
	}

	// ---- calibration model ----
	cal, err := ph.Load(calFile)
	if err != nil {
		return err
	}
	log.Printf("receiver: calibration loaded from %s (pH7=%.1f mV, pH4=%.1f mV, pH10=%.1f mV, T=%.1f K)",
		calFile, cal.PH7MV, cal.PH4MV, cal.PH10MV, cal.TempK)

	// Rolling windows over probe voltage and temperature, same depth
	// as the live plot in the desktop viewer.
	probeWin := ph.NewWindow(windowSize)
	tempWin := ph.NewWindow(windowSize)

	// The paho callback runs on its own goroutine, so calibration and
	// windows are guarded.
	var mu sync.Mutex

	// ---- connect to MQTT ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("receiver: connected to MQTT broker at %s", cfg.MQTTBroker)

	calToken := client.Subscribe(topicCal, 0, func(_ mqtt.Client, msg mqtt.Message) {
		cmd := strings.TrimSpace(string(msg.Payload()))

		mu.Lock()
		defer mu.Unlock()
		switch cmd {
		case "ph7":
			cal.CapturePH7(probeWin.Mean(), tempWin.Mean())
		case "ph4":
			cal.CapturePH4(probeWin.Mean())
		case "ph10":
			cal.CapturePH10(probeWin.Mean())
		default:
			log.Printf("receiver: unknown calibration command %q", cmd)
			return
		}

		if err := cal.Save(calFile); err != nil {
			log.Printf("receiver: calibration save error: %v", err)
			return
		}
		log.Printf("receiver: calibration point %s captured (pH7=%.1f mV, pH4=%.1f mV, pH10=%.1f mV, T=%.1f K)",
			cmd, cal.PH7MV, cal.PH4MV, cal.PH10MV, cal.TempK)
	})
	calToken.Wait()
	if calToken.Error() != nil {
		return calToken.Error()
	}
	log.Printf("receiver: subscribed to %s", topicCal)

	// ---- session data log ----
	dlog, err := datalog.Create(dataDir, time.Now())
	if err != nil {
		return err
	}
	defer dlog.Close()
	log.Printf("receiver: logging to %s", dlog.Path())

	// ---- open the probe serial port ----
	serialOpts := serial.OpenOptions{
		PortName:        cfg.ReceiverSerialPort,
		BaudRate:        uint(cfg.ReceiverBaudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("receiver: serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	reader := bufio.NewReader(port)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("receiver: serial read error: %v", err)
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r, err := reading.ParseRecord(line)
		if err != nil {
			// Diagnostic lines and garbled records are dropped; the
			// probe offers no retransmission.
			continue
		}

		mu.Lock()
		probeWin.Push(r.ProbeMillivolts())
		tempWin.Push(float64(r.TemperatureC))
		phVal := cal.Evaluate(probeWin.Mean(), tempWin.Mean())
		mu.Unlock()

		if err := dlog.Append(r, phVal); err != nil {
			log.Printf("receiver: data log write error: %v", err)
		}

		if payload, err := json.Marshal(r); err != nil {
			log.Printf("receiver: reading marshal error: %v", err)
		} else if token := client.Publish(topicReading, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("receiver: MQTT publish error (%s): %v", topicReading, token.Error())
		}

		sample := phPayload{
			PH:      phVal,
			ProbeMV: r.ProbeMillivolts(),
			TempC:   float64(r.TemperatureC),
			Time:    time.Now().UTC().Format(time.RFC3339),
		}
		if payload, err := json.Marshal(sample); err != nil {
			log.Printf("receiver: pH marshal error: %v", err)
		} else if token := client.Publish(topicPH, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("receiver: MQTT publish error (%s): %v", topicPH, token.Error())
		}

		log.Printf("receiver: temp=%d C hum=%d%% ref=%.4f mV ph=%.4f mV -> pH %.2f",
			r.TemperatureC, r.HumidityPct, r.RefMillivolts, r.PHMillivolts, phVal)
	}
}
