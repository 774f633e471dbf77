package app

import (
	"reflect"
	"testing"

	"github.com/relabs-tech/thruster_manager/internal/health"
)

func TestStatusLinesWaiting(t *testing.T) {
	got := statusLines(health.Status{}, false)
	if !reflect.DeepEqual(got, []string{"Thrusters", "Waiting..."}) {
		t.Fatalf("got %q", got)
	}
}

func TestStatusLines(t *testing.T) {
	st := health.Status{
		Name:  health.StatusName,
		Level: health.Error,
		Values: []health.KeyValue{
			{Key: "Thruster R Alive", Value: "true"},
			{Key: "Thruster R Voltage", Value: "16.049800"},
			{Key: "Thruster R Current", Value: "5.012000"},
			{Key: "Thruster R Temperature", Value: "41.200000"},
			{Key: "Thruster L Alive", Value: "false"},
			{Key: "Thruster L Voltage", Value: health.Unknown},
			{Key: "Thruster L Current", Value: health.Unknown},
			{Key: "Thruster L Temperature", Value: health.Unknown},
		},
	}
	want := []string{
		"Thrusters ERROR",
		"R 16.0V 5.0A 41C",
		"L OFFLINE",
	}
	if got := statusLines(st, true); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStatusLinesUnparsableValue(t *testing.T) {
	st := health.Status{
		Name:  health.StatusName,
		Level: health.Error,
		Values: []health.KeyValue{
			{Key: "right Alive", Value: "true"},
			{Key: "right Voltage", Value: "16.000000"},
			{Key: "right Current", Value: "0.000000"},
			{Key: "right Temperature", Value: "NaN"},
		},
	}
	got := statusLines(st, true)
	if len(got) != 2 || got[1] != "right 16.0V 0.0A --" {
		t.Fatalf("got %q", got)
	}
}

func TestShortName(t *testing.T) {
	cases := map[string]string{
		"Thruster R": "R",
		"left":       "left",
		"Port ":      "Port ",
	}
	for in, want := range cases {
		if got := shortName(in); got != want {
			t.Errorf("shortName(%q) = %q, want %q", in, got, want)
		}
	}
}
