package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/hydrolab/ph_node/internal/config"
	"github.com/hydrolab/ph_node/internal/reading"
)

// displayData holds the latest data for the OLED.
type displayData struct {
	mu sync.RWMutex

	reading     reading.Reading
	haveReading bool

	ph     phPayload
	havePH bool
}

// RunDisplay drives an SSD1306 OLED with the latest temperature,
// probe voltage, and evaluated pH, fed by MQTT.
func RunDisplay() error {
	cfg := config.Get()

	topicReading := cfg.TopicReading
	if topicReading == "" {
		topicReading = "ph/reading"
	}
	topicPH := cfg.TopicPH
	if topicPH == "" {
		topicPH = "ph/value"
	}
	clientID := cfg.MQTTClientIDDisplay
	if clientID == "" {
		clientID = "ph-display"
	}
	intervalMS := cfg.DisplayUpdateInterval
	if intervalMS == 0 {
		intervalMS = 1000
	}

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: SSD1306 initialized")

	data := &displayData{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	readingToken := client.Subscribe(topicReading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r reading.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("display: reading unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.reading = r
		data.haveReading = true
		data.mu.Unlock()
	})
	readingToken.Wait()
	if readingToken.Error() != nil {
		return readingToken.Error()
	}
	log.Printf("display: subscribed to %s", topicReading)

	phTok := client.Subscribe(topicPH, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s phPayload
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: pH unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.ph = s
		data.havePH = true
		data.mu.Unlock()
	})
	phTok.Wait()
	if phTok.Error() != nil {
		return phTok.Error()
	}
	log.Printf("display: subscribed to %s", topicPH)

	ticker := time.NewTicker(time.Duration(intervalMS) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		r := data.reading
		s := data.ph
		haveReading := data.haveReading
		havePH := data.havePH
		data.mu.RUnlock()

		if err := updateProbeDisplay(dev, r, s, haveReading, havePH); err != nil {
			log.Printf("display: update error: %v", err)
		}
	}

	return nil
}

func updateProbeDisplay(dev *ssd1306.Dev, r reading.Reading, s phPayload, haveReading, havePH bool) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	if !haveReading && !havePH {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("pH probe"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	if havePH {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawBytes([]byte(fmt.Sprintf("pH %5.2f", s.PH)))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte(fmt.Sprintf("E %8.1f mV", s.ProbeMV)))
	}
	if haveReading {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte(fmt.Sprintf("T %3d C  RH %3d%%", r.TemperatureC, r.HumidityPct)))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
