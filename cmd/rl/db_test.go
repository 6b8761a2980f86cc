package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestDBCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"db", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db --help failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"init", "migrate", "reset"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestDBResetCmd_YesFlag(t *testing.T) {
	cmd := newDBResetCmd()
	if cmd.Flags().Lookup("yes") == nil {
		t.Error("missing --yes flag")
	}
}

func TestConfirmReset_Accepts(t *testing.T) {
	cmd := newDBResetCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader("yes\n"))

	if !confirmReset(cmd, "renderloop_test") {
		t.Error("expected confirmation with \"yes\" input")
	}
}

func TestConfirmReset_Rejects(t *testing.T) {
	cmd := newDBResetCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader("no\n"))

	if confirmReset(cmd, "renderloop_test") {
		t.Error("expected rejection with \"no\" input")
	}
}
