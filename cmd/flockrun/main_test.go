package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

func TestRun_WritesCompleteTelemetry(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "flock.yaml")
	if err := os.WriteFile(cfgPath, []byte("capacity: 30\ninitial_birds: 10\nlog_level: error\n"), 0644); err != nil {
		t.Fatal(err)
	}
	csvPath := filepath.Join(dir, "stats.csv")

	var stderr bytes.Buffer
	args := []string{"-config", cfgPath, "-ticks", "10", "-every", "1", "-telemetry", csvPath}
	if err := run(context.Background(), args, &stderr); err != nil {
		t.Fatalf("run() error = %v; stderr %s", err, stderr.String())
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := simulation.ReadTelemetry(f)
	if err != nil {
		t.Fatalf("ReadTelemetry() error = %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("telemetry has %d rows; want 10", len(rows))
	}
	if rows[9].Tick != 10 || rows[9].Population != 10 {
		t.Errorf("last row = %+v", rows[9])
	}
}

func TestRun_ReturnsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"Unknown flag", []string{"-bogus"}},
		{"Missing config", []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}},
		{"Unwritable telemetry", []string{"-ticks", "1", "-telemetry", filepath.Join(t.TempDir(), "no", "such", "dir.csv")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if err := run(context.Background(), tt.args, &stderr); err == nil {
				t.Error("run() should fail")
			}
		})
	}
}
