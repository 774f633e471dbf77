// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/thruster_manager/internal/config"
	"github.com/relabs-tech/thruster_manager/internal/health"
)

// RunConsoleMQTT prints every diagnostics status and velocity command seen
// on the broker.
func RunConsoleMQTT() error {
	cfg := config.Get()
	defer setupLogging("console", cfg).Close()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, "console", func(c mqtt.Client) {
		subscribe(c, "console", cfg.TopicDiagnostics, statusHandler("console", func(st health.Status) {
			fmt.Println(formatStatus(st))
		}))
		subscribe(c, "console", cfg.TopicThrusterCommands, func(_ mqtt.Client, msg mqtt.Message) {
			t, err := decodeTwist(msg.Payload())
			if err != nil {
				log.Printf("console: %v", err)
				return
			}
			fmt.Printf("[CMD ]  lin=(%6.3f %6.3f %6.3f)  ang=(%6.3f %6.3f %6.3f)\n",
				t.Linear.X, t.Linear.Y, t.Linear.Z, t.Angular.X, t.Angular.Y, t.Angular.Z)
		})
	})
	if err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

// formatStatus renders a status as one console line per thruster value.
func formatStatus(st health.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[DIAG]  %s %s: %s", st.Name, st.Level, st.Message)
	for _, kv := range st.Values {
		fmt.Fprintf(&b, "\n        %-28s %s", kv.Key, kv.Value)
	}
	return b.String()
}
