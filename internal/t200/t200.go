// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package t200 drives Blue Robotics T200 thrusters fitted with BlueESC
// controllers over I2C.
//
// Register map (big-endian words):
//
//	0x00-0x01  throttle, signed, -32767..32767          (W)
//	0x02-0x03  commutation pulse count since last read  (R)
//	0x04-0x05  supply voltage, raw ADC                  (R)
//	0x06-0x07  thermistor, raw ADC                      (R)
//	0x08-0x09  current, raw ADC, offset 32767           (R)
//	0x0A       identifier, 0xAB when the ESC is running (R)
package t200

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

const (
	regThrottle = 0x00
	regStatus   = 0x02
	statusLen   = 9

	// Identifier is the value of register 0x0A on a live BlueESC.
	Identifier = 0xAB

	// MaxThrottle is the full-scale throttle register value.
	MaxThrottle = 32767

	voltsPerCount = 0.0004921
	ampsPerCount  = 0.001122
	currentOffset = 32767

	thermistorNominal = 10000.0 // Ω at 25 °C
	temperatureNomC   = 25.0
	bCoefficient      = 3900.0
	seriesResistor    = 3300.0 // Ω
)

// Reading is one decoded status block.
type Reading struct {
	PulseCount  uint16
	RawVoltage  uint16
	Voltage     physic.ElectricPotential
	Current     physic.ElectricCurrent
	Temperature float64 // °C, NaN when the thermistor reads open or short
	Identifier  byte
}

// Alive reports whether the ESC answered with its identifier byte.
func (r Reading) Alive() bool {
	return r.Identifier == Identifier
}

// Telemetry converts the reading into the thruster-neutral form.
func (r Reading) Telemetry() thruster.Telemetry {
	return thruster.Telemetry{
		Alive:              r.Alive(),
		VoltageVolts:       float64(r.Voltage) / float64(physic.Volt),
		CurrentAmps:        float64(r.Current) / float64(physic.Ampere),
		TemperatureCelsius: r.Temperature,
	}
}

// Dev is a handle to one BlueESC on an I2C bus.
type Dev struct {
	mu   sync.Mutex
	name string
	d    i2c.Dev
}

// New returns a Dev at addr on bus. No bus traffic happens until the first
// command or status read.
func New(bus i2c.Bus, addr uint16, name string) *Dev {
	return &Dev{name: name, d: i2c.Dev{Bus: bus, Addr: addr}}
}

func (d *Dev) String() string {
	return fmt.Sprintf("t200 %s (0x%02X)", d.name, d.d.Addr)
}

// SetThrottle writes a raw signed throttle value.
func (d *Dev) SetThrottle(v int16) error {
	if v < -MaxThrottle {
		v = -MaxThrottle
	}
	w := []byte{regThrottle, 0, 0}
	binary.BigEndian.PutUint16(w[1:], uint16(v))

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("%s: write throttle: %w", d, err)
	}
	return nil
}

// WriteCommand implements thruster.Driver.
func (d *Dev) WriteCommand(c thruster.Command) error {
	return d.SetThrottle(Throttle(c))
}

// Read fetches and decodes the status block.
func (d *Dev) Read() (Reading, error) {
	buf := make([]byte, statusLen)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.d.Tx([]byte{regStatus}, buf); err != nil {
		return Reading{}, fmt.Errorf("%s: read status: %w", d, err)
	}
	return Decode(buf), nil
}

// ReadTelemetry implements thruster.Driver.
func (d *Dev) ReadTelemetry() (thruster.Telemetry, error) {
	r, err := d.Read()
	if err != nil {
		return thruster.Telemetry{}, err
	}
	return r.Telemetry(), nil
}

// Throttle converts a ratio/direction command into a throttle register value.
func Throttle(c thruster.Command) int16 {
	ratio := c.Ratio
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	v := int16(math.Round(ratio * MaxThrottle))
	if c.Direction == thruster.Reverse {
		v = -v
	}
	return v
}

// Decode parses a 9 byte status block starting at register 0x02.
func Decode(b []byte) Reading {
	if len(b) < statusLen {
		return Reading{}
	}
	r := Reading{
		PulseCount: binary.BigEndian.Uint16(b[0:2]),
		RawVoltage: binary.BigEndian.Uint16(b[2:4]),
		Identifier: b[8],
	}
	rawTemp := binary.BigEndian.Uint16(b[4:6])
	rawCurrent := binary.BigEndian.Uint16(b[6:8])

	r.Voltage = physic.ElectricPotential(math.Round(float64(r.RawVoltage) * voltsPerCount * float64(physic.Volt)))
	r.Current = physic.ElectricCurrent(math.Round((float64(rawCurrent) - currentOffset) * ampsPerCount * float64(physic.Ampere)))
	r.Temperature = thermistorCelsius(rawTemp)
	return r
}

// thermistorCelsius applies the B-parameter Steinhart equation to the
// divider reading.
func thermistorCelsius(raw uint16) float64 {
	if raw == 0 || raw == math.MaxUint16 {
		return math.NaN()
	}
	resistance := seriesResistor / (math.MaxUint16/float64(raw) - 1)
	s := math.Log(resistance/thermistorNominal) / bCoefficient
	s += 1.0 / (temperatureNomC + 273.15)
	return 1.0/s - 273.15
}
