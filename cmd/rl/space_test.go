package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestSpaceCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"space", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("space --help failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"add", "list", "exclude", "include"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestSpaceAddCmd_Flags(t *testing.T) {
	cmd := newSpaceAddCmd()
	for _, name := range []string{"pipeline", "name", "kind", "config"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
}

func TestSpaceExcludeCmd_RequiresArg(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"space", "exclude"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing space id")
	}
}
