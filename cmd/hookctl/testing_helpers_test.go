package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/internal/testutil"
)

const testBase = uint64(0x140000000)

// writeDump writes the canned host's code image, optionally without the
// vehicle manager.
func writeDump(t *testing.T, withVehicle bool) string {
	t.Helper()
	l := testutil.HostLayout()
	if !withVehicle {
		l.Clear(testutil.VehicleManagerOff, 18)
	}
	return l.WriteDump(t)
}

// resetFlags restores every global flag and loads the default config from
// an empty working directory.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	verbose, quiet, jsonOut = false, false, false
	cfgPath, logLevel = "", ""
	dumpPath, dumpBase, targetPID = "", 0, 0
	scanModule, discoverTicks = "", 1
	require.NoError(t, setup(nil, nil))
	t.Cleanup(func() {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	})
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON and decodes it into v
func assertJSON(t *testing.T, output string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
