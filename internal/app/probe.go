// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/thruster_manager/internal/config"
	"github.com/relabs-tech/thruster_manager/internal/health"
	"github.com/relabs-tech/thruster_manager/internal/t200"
	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

// ProbeOptions selects the thruster to probe and an optional spin test.
type ProbeOptions struct {
	Thruster string        // "left" or "right"
	Ratio    float64       // signed spin ratio, -1..1; 0 reads only
	Duration time.Duration // how long to spin
}

// RunThrusterProbe reads one BlueESC directly over I2C, optionally spins it,
// and prints its telemetry and health verdict.
func RunThrusterProbe(opts ProbeOptions) error {
	cfg := config.Get()

	id, err := thruster.ParseID(opts.Thruster)
	if err != nil {
		return err
	}
	if math.IsNaN(opts.Ratio) || opts.Ratio < -1 || opts.Ratio > 1 {
		return fmt.Errorf("ratio must be within [-1, 1], got %v", opts.Ratio)
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(cfg.ThrusterI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus %q: %w", cfg.ThrusterI2CBus, err)
	}
	defer bus.Close()

	dev := t200.New(bus, cfg.Addr(id), cfg.Name(id))
	log.Printf("probe: %s", dev)

	if opts.Ratio != 0 {
		cmd := probeCommand(opts.Ratio)
		log.Printf("probe: spinning at %+.2f for %s", cmd.Signed(), opts.Duration)
		if err := dev.WriteCommand(cmd); err != nil {
			return err
		}
		time.Sleep(opts.Duration)
	}

	r, readErr := dev.Read()
	stopErr := dev.WriteCommand(thruster.Stop)
	if readErr != nil {
		return errors.Join(readErr, stopErr)
	}
	if stopErr != nil {
		log.Printf("probe: stop failed: %v", stopErr)
	}

	fmt.Printf("identifier   0x%02X (alive=%t)\n", r.Identifier, r.Alive())
	fmt.Printf("pulse count  %d\n", r.PulseCount)
	fmt.Printf("voltage      %s (raw %d)\n", r.Voltage, r.RawVoltage)
	fmt.Printf("current      %s\n", r.Current)
	fmt.Printf("temperature  %.2f °C\n", r.Temperature)

	st := health.Evaluate([]thruster.ID{id},
		map[thruster.ID]thruster.Telemetry{id: r.Telemetry()},
		cfg.Thresholds,
		map[thruster.ID]string{id: cfg.Name(id)})
	fmt.Printf("health       %s: %s\n", st.Level, st.Message)
	return nil
}

func probeCommand(ratio float64) thruster.Command {
	if ratio > 0 {
		return thruster.Command{Ratio: ratio, Direction: thruster.Forward}
	}
	return thruster.Command{Ratio: -ratio, Direction: thruster.Reverse}
}
