package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// resetGlobals restores global flag state and isolates config lookup.
func resetGlobals(t *testing.T) {
	t.Helper()
	verbose, quiet, jsonOut, configFile = false, false, false, ""
	infoIs32, infoIgnoreLogs = false, false
	recoverOutput = ""
	viper.Reset()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(viper.Reset)
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

	// Drain concurrently so large outputs cannot fill the pipe.
	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done
	r.Close()

	return string(out), fnErr
}

// runCmd executes a freshly built command with args and captures stdout.
func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return captureOutput(t, func() error {
		return cmd.ExecuteContext(context.Background())
	})
}
