package app

import (
	"strings"
	"testing"

	"github.com/relabs-tech/thruster_manager/internal/health"
)

func TestFormatStatus(t *testing.T) {
	st := health.Status{
		Name:    health.StatusName,
		Level:   health.Error,
		Message: "Thruster L overtemperature",
		Values: []health.KeyValue{
			{Key: "Thruster L Temperature", Value: "41.000000"},
		},
	}
	got := formatStatus(st)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), got)
	}
	if lines[0] != "[DIAG]  Thrusters ERROR: Thruster L overtemperature" {
		t.Fatalf("header %q", lines[0])
	}
	if !strings.Contains(lines[1], "Thruster L Temperature") || !strings.HasSuffix(lines[1], "41.000000") {
		t.Fatalf("value line %q", lines[1])
	}
}
