// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/thruster_manager/internal/config"
	"github.com/relabs-tech/thruster_manager/internal/mixer"
)

// sweepSource generates a slow surge and yaw sweep for bench testing.
// The surge amplitude stays below 1 so the mixer is seen both inside and
// at saturation once yaw is added.
type sweepSource struct {
	start time.Time
}

func (s *sweepSource) at(elapsed float64) mixer.Twist {
	return mixer.Twist{
		Linear:  mixer.Vector3{X: 0.8 * math.Sin(elapsed*0.5)},
		Angular: mixer.Vector3{Z: 0.5 * math.Cos(elapsed*0.3)},
	}
}

func (s *sweepSource) Next() mixer.Twist {
	return s.at(time.Since(s.start).Seconds())
}

// RunCommandPublisher publishes a sweep of velocity commands on the command
// topic until interrupted, then publishes a final zero command.
func RunCommandPublisher() error {
	cfg := config.Get()
	defer setupLogging("publisher", cfg).Close()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDPublisher, "publisher", nil)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	publish := func(t mixer.Twist) {
		payload, err := json.Marshal(t)
		if err != nil {
			log.Printf("publisher: JSON marshal error: %v", err)
			return
		}
		token := client.Publish(cfg.TopicThrusterCommands, 0, false, payload)
		if !token.WaitTimeout(publishTimeout) {
			log.Printf("publisher: publish timeout on %s", cfg.TopicThrusterCommands)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("publisher: publish error: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.PublisherInterval) * time.Millisecond)
	defer ticker.Stop()

	src := &sweepSource{start: time.Now()}
	log.Printf("publisher: sweeping %s every %d ms", cfg.TopicThrusterCommands, cfg.PublisherInterval)
	for {
		select {
		case <-sigCh:
			publish(mixer.Twist{})
			log.Println("publisher: sent stop command, shutting down")
			return nil
		case <-ticker.C:
			publish(src.Next())
		}
	}
}
