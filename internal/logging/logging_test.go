package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thrusters.log")
	closer := Setup("test", Options{File: path, MaxSizeMB: 1, MaxBackups: 1})
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.Printf("monitor: thruster health OK")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "monitor: thruster health OK") {
		t.Fatalf("log file missing entry:\n%s", data)
	}
}

func TestSetupWithoutFile(t *testing.T) {
	closer := Setup("test", Options{})
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
