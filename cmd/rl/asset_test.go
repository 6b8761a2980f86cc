package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestAssetCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"asset", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("asset --help failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"list", "show", "approve", "reject", "retry"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestAssetListCmd_Flags(t *testing.T) {
	cmd := newAssetListCmd()
	for _, name := range []string{"config", "pipeline", "space", "stage", "status"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
}

func TestAssetRejectCmd_Flags(t *testing.T) {
	cmd := newAssetRejectCmd()
	for _, name := range []string{"reviewer", "notes"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
}

func TestAssetApproveCmd_RequiresArg(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"asset", "approve"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing asset id")
	}
}
