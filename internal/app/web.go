package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/hydrolab/ph_node/internal/config"
	"github.com/hydrolab/ph_node/internal/reading"
)

// wsEvent wraps a republished MQTT payload for the browser, tagged so
// one socket can carry both topics.
type wsEvent struct {
	Type string          `json:"type"` // "reading" or "ph"
	Data json.RawMessage `json:"data"`
}

// wsHub fans live events out to all connected websocket clients.
type wsHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

func newWSHub() *wsHub {
	return &wsHub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			// The viewer is served from the same host; allow all
			// origins for LAN access to the Pi.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *wsHub) handleConnections(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer ws.Close()

	h.mu.Lock()
	h.clients[ws] = true
	h.mu.Unlock()
	log.Println("web: websocket client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, ws)
		h.mu.Unlock()
		log.Println("web: websocket client disconnected")
	}()

	// Drain client messages to notice disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *wsHub) broadcast(eventType string, payload []byte) {
	msg, err := json.Marshal(wsEvent{Type: eventType, Data: payload})
	if err != nil {
		log.Printf("web: event marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("web: websocket write error: %v", err)
			client.Close()
			delete(h.clients, client)
		}
	}
}

// RunWeb subscribes to the reading and pH topics, keeps the latest
// sample for the JSON API, and pushes every update over the websocket
// endpoint to connected viewers.
func RunWeb() error {
	cfg := config.Get()

	topicReading := cfg.TopicReading
	if topicReading == "" {
		topicReading = "ph/reading"
	}
	topicPH := cfg.TopicPH
	if topicPH == "" {
		topicPH = "ph/value"
	}
	clientID := cfg.MQTTClientIDWeb
	if clientID == "" {
		clientID = "ph-web"
	}
	port := cfg.WebServerPort
	if port == 0 {
		port = 8080
	}

	var (
		mu          sync.RWMutex
		lastReading reading.Reading
		lastPH      phPayload
		haveReading bool
		havePH      bool
	)

	hub := newWSHub()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	readingToken := client.Subscribe(topicReading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r reading.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("web: reading unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastReading = r
		haveReading = true
		mu.Unlock()
		hub.broadcast("reading", msg.Payload())
	})
	readingToken.Wait()
	if readingToken.Error() != nil {
		return readingToken.Error()
	}
	log.Printf("web: subscribed to %s", topicReading)

	phTok := client.Subscribe(topicPH, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s phPayload
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("web: pH unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastPH = s
		havePH = true
		mu.Unlock()
		hub.broadcast("ph", msg.Payload())
	})
	phTok.Wait()
	if phTok.Error() != nil {
		return phTok.Error()
	}
	log.Printf("web: subscribed to %s", topicPH)

	// JSON API: latest sample.
	http.HandleFunc("/api/sample", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveReading && !havePH {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		resp := struct {
			Reading *reading.Reading `json:"reading,omitempty"`
			PH      *phPayload       `json:"ph,omitempty"`
		}{}
		if haveReading {
			resp.Reading = &lastReading
		}
		if havePH {
			resp.PH = &lastPH
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// Live updates.
	http.HandleFunc("/ws", hub.handleConnections)

	// Static files from ./web as the root.
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", port)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
