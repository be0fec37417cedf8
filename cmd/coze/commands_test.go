package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"chat", "stream", "workflow", "token"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("subcommand %q not found: %v", name, err)
		}
	}
}

func TestChatCmd_RequiresBot(t *testing.T) {
	t.Setenv("COZE_API_TOKEN", "pat_test_token")
	root := newRootCmd()
	root.SetArgs([]string{"chat", "hello"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing --bot")
	}
}

func TestTokenCmd_PrintsMaskedToken(t *testing.T) {
	t.Setenv("COZE_API_BASE", "http://127.0.0.1:1")
	t.Setenv("COZE_API_TOKEN", "pat_abcdefghijkl")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"token"})
	root.SetOut(&out)
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "pat_...ijkl" {
		t.Fatalf("token = %q, want %q", got, "pat_...ijkl")
	}
}
