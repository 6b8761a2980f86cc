package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestSweepCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"sweep", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("sweep --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "--once") {
		t.Errorf("expected --once flag, got: %s", out)
	}
	if !strings.Contains(out, "attempt budget") {
		t.Errorf("expected help to describe exhaustion sweeping, got: %s", out)
	}
}
