package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestServeCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("serve --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "review API") {
		t.Errorf("expected help to mention the review API, got: %s", out)
	}
	if !strings.Contains(out, "--port") {
		t.Errorf("expected --port flag, got: %s", out)
	}
}

func TestServeCmd_PortFlag(t *testing.T) {
	cmd := newServeCmd()
	flag := cmd.Flags().Lookup("port")
	if flag == nil {
		t.Fatal("missing --port flag")
	}
	if flag.DefValue != "0" {
		t.Errorf("port default = %q, want 0 (defer to config)", flag.DefValue)
	}
}
