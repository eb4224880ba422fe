package main

import (
	"flag"
	"log"

	"github.com/hydrolab/ph_node/internal/app"
	"github.com/hydrolab/ph_node/internal/config"
)

func main() {
	configPath := flag.String("config", "./phnode_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting ph_node receiver (serial -> pH evaluation -> MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunReceiver(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
