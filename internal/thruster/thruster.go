// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package thruster

import (
	"fmt"
	"strings"
)

// ID identifies a thruster by its physical mounting position.
type ID int

const (
	Left ID = iota
	Right
)

// NumThrusters is the number of thrusters fitted to the vehicle.
const NumThrusters = 2

// IDs returns every thruster ID in declaration order.
func IDs() []ID {
	return []ID{Left, Right}
}

func (id ID) String() string {
	switch id {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("ID(%d)", int(id))
	}
}

// Valid reports whether id names a fitted thruster.
func (id ID) Valid() bool {
	return id >= 0 && int(id) < NumThrusters
}

// ParseID accepts "left"/"right" (case-insensitive) or the short forms "l"/"r".
func ParseID(s string) (ID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	default:
		return 0, fmt.Errorf("unknown thruster %q", s)
	}
}

// Direction is the rotational sense of a thruster command.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Command is a single thruster drive request. Ratio is always in [0, 1];
// the sign lives in Direction.
type Command struct {
	Ratio     float64   `json:"ratio"`
	Direction Direction `json:"direction"`
}

// Signed returns the command as a value in [-1, 1].
func (c Command) Signed() float64 {
	if c.Direction == Reverse {
		return -c.Ratio
	}
	return c.Ratio
}

// Stop is the zero-thrust command.
var Stop = Command{Ratio: 0, Direction: Reverse}

// CommandSet holds one command per thruster, indexed by ID.
type CommandSet [NumThrusters]Command

// For returns the command for id.
func (s CommandSet) For(id ID) Command {
	return s[id]
}

// Telemetry is a single status sample read from a thruster controller.
type Telemetry struct {
	Alive              bool    `json:"alive"`
	VoltageVolts       float64 `json:"voltage_v"`
	CurrentAmps        float64 `json:"current_a"`
	TemperatureCelsius float64 `json:"temp_c"`
}

// Driver is the bus-level handle for one physical thruster controller.
// Implementations must serialize WriteCommand and ReadTelemetry themselves.
type Driver interface {
	WriteCommand(Command) error
	ReadTelemetry() (Telemetry, error)
}
