// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package health classifies thruster telemetry against fixed limits and
// flattens it into the key/value record published as diagnostics.
package health

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

// StatusName is used for both Status.Name and Status.HardwareID.
const StatusName = "Thrusters"

// Unknown is reported for numeric fields of a thruster with no telemetry.
const Unknown = "unknown"

// Thresholds are the limits a thruster must stay within to be healthy.
type Thresholds struct {
	UndervoltVolts  float64
	OvervoltVolts   float64
	OvercurrentAmps float64
	OvertempCelsius float64
}

// DefaultThresholds returns the limits for a T200 on a 4S/5S pack.
func DefaultThresholds() Thresholds {
	return Thresholds{
		UndervoltVolts:  11.0,
		OvervoltVolts:   20.0,
		OvercurrentAmps: 25.0,
		OvertempCelsius: 40.0,
	}
}

// Validate rejects threshold sets that no thruster could satisfy.
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.UndervoltVolts, t.OvervoltVolts, t.OvercurrentAmps, t.OvertempCelsius} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("thresholds must be finite, got %+v", t)
		}
	}
	if t.UndervoltVolts >= t.OvervoltVolts {
		return fmt.Errorf("undervolt %.2f V must be below overvolt %.2f V", t.UndervoltVolts, t.OvervoltVolts)
	}
	if t.OvercurrentAmps <= 0 {
		return fmt.Errorf("overcurrent must be positive, got %.2f A", t.OvercurrentAmps)
	}
	if t.OvertempCelsius <= 0 {
		return fmt.Errorf("overtemperature must be positive, got %.2f °C", t.OvertempCelsius)
	}
	return nil
}

// Level follows the diagnostic_msgs/DiagnosticStatus numbering.
type Level byte

const (
	OK    Level = 0
	Error Level = 2
)

func (l Level) String() string {
	switch l {
	case OK:
		return "OK"
	case Error:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", byte(l))
	}
}

// KeyValue is one diagnostic field.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Status is the aggregate thruster health for one monitoring tick.
type Status struct {
	Name       string     `json:"name"`
	HardwareID string     `json:"hardware_id"`
	Level      Level      `json:"level"`
	Message    string     `json:"message"`
	Values     []KeyValue `json:"values"`
	Stamp      time.Time  `json:"stamp,omitzero"`
}

// Value looks up a field by key.
func (s Status) Value(key string) (string, bool) {
	for _, kv := range s.Values {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Evaluate classifies the thrusters listed in order. The level is OK only if
// every thruster is alive and inside every threshold; a thruster missing
// from telemetry counts as not alive.
func Evaluate(order []thruster.ID, telemetry map[thruster.ID]thruster.Telemetry, th Thresholds, names map[thruster.ID]string) Status {
	st := Status{
		Name:       StatusName,
		HardwareID: StatusName,
		Level:      OK,
		Values:     make([]KeyValue, 0, 4*len(order)),
	}
	var faults []string

	for _, id := range order {
		name, ok := names[id]
		if !ok || name == "" {
			name = id.String()
		}

		t, have := telemetry[id]
		if !have {
			faults = append(faults, name+" no telemetry")
			st.Values = append(st.Values,
				KeyValue{Key: name + " Alive", Value: strconv.FormatBool(false)},
				KeyValue{Key: name + " Voltage", Value: Unknown},
				KeyValue{Key: name + " Current", Value: Unknown},
				KeyValue{Key: name + " Temperature", Value: Unknown},
			)
			continue
		}

		faults = append(faults, check(name, t, th)...)
		st.Values = append(st.Values,
			KeyValue{Key: name + " Alive", Value: strconv.FormatBool(t.Alive)},
			KeyValue{Key: name + " Voltage", Value: formatFloat(t.VoltageVolts)},
			KeyValue{Key: name + " Current", Value: formatFloat(t.CurrentAmps)},
			KeyValue{Key: name + " Temperature", Value: formatFloat(t.TemperatureCelsius)},
		)
	}

	if len(faults) > 0 {
		st.Level = Error
		st.Message = strings.Join(faults, "; ")
	} else {
		st.Message = OK.String()
	}
	return st
}

// check lists every threshold t violates. Comparisons are written so that a
// NaN reading fails them.
func check(name string, t thruster.Telemetry, th Thresholds) []string {
	var out []string
	if !t.Alive {
		out = append(out, name+" not alive")
	}
	if !(t.VoltageVolts > th.UndervoltVolts && t.VoltageVolts < th.OvervoltVolts) {
		out = append(out, name+" voltage out of range")
	}
	if !(t.CurrentAmps < th.OvercurrentAmps) {
		out = append(out, name+" overcurrent")
	}
	if !(t.TemperatureCelsius < th.OvertempCelsius) {
		out = append(out, name+" overtemperature")
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
