package t200

import (
	"errors"
	"math"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

type failingBus struct{}

func (failingBus) String() string { return "failing" }
func (failingBus) Tx(addr uint16, w, r []byte) error { return errors.New("nack") }
func (failingBus) SetSpeed(f physic.Frequency) error { return nil }

func TestThrottle(t *testing.T) {
	cases := []struct {
		cmd  thruster.Command
		want int16
	}{
		{thruster.Command{Ratio: 1, Direction: thruster.Forward}, 32767},
		{thruster.Command{Ratio: 1, Direction: thruster.Reverse}, -32767},
		{thruster.Command{Ratio: 0.5, Direction: thruster.Reverse}, -16384},
		{thruster.Stop, 0},
		{thruster.Command{Ratio: 3, Direction: thruster.Forward}, 32767},
		{thruster.Command{Ratio: math.NaN(), Direction: thruster.Forward}, 0},
	}
	for _, tc := range cases {
		if got := Throttle(tc.cmd); got != tc.want {
			t.Fatalf("Throttle(%+v) = %d, want %d", tc.cmd, got, tc.want)
		}
	}
}

func TestWriteCommandBytes(t *testing.T) {
	bus := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: 0x2D, W: []byte{0x00, 0x7F, 0xFF}},
		{Addr: 0x2D, W: []byte{0x00, 0xC0, 0x00}},
		{Addr: 0x2D, W: []byte{0x00, 0x00, 0x00}},
	}}
	d := New(bus, 0x2D, "left")

	if err := d.WriteCommand(thruster.Command{Ratio: 1, Direction: thruster.Forward}); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := d.WriteCommand(thruster.Command{Ratio: 0.5, Direction: thruster.Reverse}); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if err := d.WriteCommand(thruster.Stop); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("playback: %v", err)
	}
}

func TestReadTelemetry(t *testing.T) {
	// pulses=12, voltage raw 32514 (~16.0 V), thermistor raw 49274 (~25 °C),
	// current raw 37223 (~5.0 A), identifier 0xAB
	bus := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: 0x2E, W: []byte{0x02}, R: []byte{0x00, 0x0C, 0x7F, 0x02, 0xC0, 0x7A, 0x91, 0x67, 0xAB}},
	}}
	d := New(bus, 0x2E, "right")

	r, err := d.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if r.PulseCount != 12 {
		t.Fatalf("pulse count = %d", r.PulseCount)
	}
	tel := r.Telemetry()
	if !tel.Alive {
		t.Fatalf("expected alive")
	}
	if math.Abs(tel.VoltageVolts-16.0) > 0.001 {
		t.Fatalf("voltage = %v", tel.VoltageVolts)
	}
	if math.Abs(tel.CurrentAmps-5.0) > 0.001 {
		t.Fatalf("current = %v", tel.CurrentAmps)
	}
	if math.Abs(tel.TemperatureCelsius-25.0) > 0.1 {
		t.Fatalf("temperature = %v", tel.TemperatureCelsius)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("playback: %v", err)
	}
}

func TestDecodeDeadESC(t *testing.T) {
	r := Decode([]byte{0, 0, 0x7F, 0x02, 0, 0, 0x7F, 0xFF, 0x00})
	if r.Alive() {
		t.Fatalf("expected not alive without identifier")
	}
	if !math.IsNaN(r.Temperature) {
		t.Fatalf("expected NaN temperature for shorted thermistor, got %v", r.Temperature)
	}
	if r.Current != 0 {
		t.Fatalf("expected zero current at offset, got %v", r.Current)
	}
}

func TestReadErrorIsWrapped(t *testing.T) {
	d := New(failingBus{}, 0x2D, "left")
	if _, err := d.ReadTelemetry(); err == nil {
		t.Fatalf("expected read error")
	}
	if err := d.WriteCommand(thruster.Stop); err == nil {
		t.Fatalf("expected write error")
	}
}
