package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hydrolab/ph_node/internal/config"
	"github.com/hydrolab/ph_node/internal/reading"
)

// RunConsoleMQTT subscribes to the reading and pH topics and pretty
// prints them. Typing ph7, ph4 or ph10 on stdin publishes the matching
// calibration capture command for the receiver.
func RunConsoleMQTT() error {
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
	clientID := cfg.MQTTClientIDConsole
	if clientID == "" {
		clientID = "ph-console"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	readingToken := client.Subscribe(topicReading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r reading.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: reading unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[READ] temp=%3d C  hum=%3d %%  ref=%9.4f mV  ph=%9.4f mV  delta=%9.4f mV\n",
			r.TemperatureC, r.HumidityPct, r.RefMillivolts, r.PHMillivolts, r.ProbeMillivolts(),
		)
	})
	readingToken.Wait()
	if readingToken.Error() != nil {
		return readingToken.Error()
	}
	log.Printf("console: subscribed to %s", topicReading)

	phToken := client.Subscribe(topicPH, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s phPayload
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: pH unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[PH  ] pH=%5.2f  probe=%9.4f mV  temp=%5.1f C  time=%s\n",
			s.PH, s.ProbeMV, s.TempC, s.Time,
		)
	})
	phToken.Wait()
	if phToken.Error() != nil {
		return phToken.Error()
	}
	log.Printf("console: subscribed to %s", topicPH)

	// Calibration commands from stdin.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cmd := strings.TrimSpace(scanner.Text())
			switch cmd {
			case "ph7", "ph4", "ph10":
				token := client.Publish(topicCal, 0, false, cmd)
				token.Wait()
				if token.Error() != nil {
					log.Printf("console: calibration publish error: %v", token.Error())
					continue
				}
				log.Printf("console: sent calibration command %q", cmd)
			case "":
			default:
				fmt.Println("commands: ph7 | ph4 | ph10")
			}
		}
	}()

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
