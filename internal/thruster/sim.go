// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package thruster

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrSimOffline is returned by a SimDriver whose bus has been disconnected.
var ErrSimOffline = errors.New("sim thruster offline")

// Fault overrides part of a simulated thruster's telemetry.
type Fault struct {
	Offline      bool    // ReadTelemetry/WriteCommand fail
	Dead         bool    // reads succeed but Alive is false
	VoltageVolts float64 // non-zero replaces the modelled voltage
	CurrentAmps  float64 // non-zero replaces the modelled current
	TempCelsius  float64 // non-zero replaces the modelled temperature
}

// SimDriver models a thruster controller for bench runs without hardware.
// Voltage sags with load, current grows with ratio and the winding
// temperature drifts towards a load dependent equilibrium.
type SimDriver struct {
	mu       sync.Mutex
	supply   float64
	ambient  float64
	temp     float64
	last     Command
	lastTick time.Time
	fault    Fault
	now      func() time.Time
}

// NewSimDriver returns a simulated thruster on a supply of supplyVolts.
func NewSimDriver(supplyVolts float64) *SimDriver {
	return &SimDriver{
		supply:  supplyVolts,
		ambient: 20,
		temp:    20,
		last:    Stop,
		now:     time.Now,
	}
}

// SetFault replaces the injected fault.
func (s *SimDriver) SetFault(f Fault) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

// LastCommand returns the most recently written command.
func (s *SimDriver) LastCommand() Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *SimDriver) WriteCommand(c Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault.Offline {
		return ErrSimOffline
	}
	s.last = c
	return nil
}

func (s *SimDriver) ReadTelemetry() (Telemetry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault.Offline {
		return Telemetry{}, ErrSimOffline
	}

	load := s.last.Ratio
	current := 20 * math.Pow(load, 1.5)
	voltage := s.supply - 0.08*current

	now := s.now()
	if !s.lastTick.IsZero() {
		dt := now.Sub(s.lastTick).Seconds()
		target := s.ambient + 1.2*current
		// first-order lag, ~60 s time constant
		s.temp += (target - s.temp) * math.Min(1, dt/60)
	}
	s.lastTick = now

	t := Telemetry{
		Alive:              !s.fault.Dead,
		VoltageVolts:       voltage,
		CurrentAmps:        current,
		TemperatureCelsius: s.temp,
	}
	if s.fault.VoltageVolts != 0 {
		t.VoltageVolts = s.fault.VoltageVolts
	}
	if s.fault.CurrentAmps != 0 {
		t.CurrentAmps = s.fault.CurrentAmps
	}
	if s.fault.TempCelsius != 0 {
		t.TemperatureCelsius = s.fault.TempCelsius
	}
	return t, nil
}
