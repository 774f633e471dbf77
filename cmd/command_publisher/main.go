// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/thruster_manager/internal/app"
	"github.com/relabs-tech/thruster_manager/internal/config"
)

func main() {
	configPath := flag.String("config", "./thruster_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting bench command publisher (sweep → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunCommandPublisher(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
