// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/thruster_manager/internal/app"
	"github.com/relabs-tech/thruster_manager/internal/config"
)

func main() {
	configPath := flag.String("config", "./thruster_config.txt", "path to configuration file")
	which := flag.String("thruster", "left", "thruster to probe: left or right")
	ratio := flag.Float64("spin", 0, "signed throttle ratio to spin at before reading, -1..1")
	duration := flag.Duration("for", 2*time.Second, "how long to spin")
	flag.Parse()

	log.Println("starting thruster probe (direct I2C)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	err := app.RunThrusterProbe(app.ProbeOptions{
		Thruster: *which,
		Ratio:    *ratio,
		Duration: *duration,
	})
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
