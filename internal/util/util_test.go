package util

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/router-for-me/CozeSDK/internal/config"
	log "github.com/sirupsen/logrus"
)

func TestResolvePath_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := ResolvePath("~/keys/private.pem")
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	want := filepath.Join(home, "keys", "private.pem")
	if got != want {
		t.Fatalf("ResolvePath() = %q, want %q", got, want)
	}
}

func TestResolvePath_Empty(t *testing.T) {
	got, err := ResolvePath("   ")
	if err != nil || got != "" {
		t.Fatalf("ResolvePath(blank) = %q, %v; want empty, nil", got, err)
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("pat_1234567890abcd"); got != "pat_...abcd" {
		t.Fatalf("MaskToken() = %q, want %q", got, "pat_...abcd")
	}
	if got := MaskToken("short"); got != "*****" {
		t.Fatalf("MaskToken(short) = %q, want %q", got, "*****")
	}
}

func TestMaskedHeaders_DoesNotMutateInput(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer pat_1234567890abcd")
	h.Set("X-Custom", "v")

	masked := MaskedHeaders(h)

	if got := masked.Get("Authorization"); got != "Bearer pat_...abcd" {
		t.Fatalf("masked Authorization = %q", got)
	}
	if got := h.Get("Authorization"); got != "Bearer pat_1234567890abcd" {
		t.Fatalf("input header mutated: %q", got)
	}
	if masked.Get("X-Custom") != "v" {
		t.Fatal("unrelated headers must be preserved")
	}
}

func TestSetLogLevel(t *testing.T) {
	prev := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(prev) })

	SetLogLevel(&config.Config{Debug: true})
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("level = %s, want debug", log.GetLevel())
	}
	SetLogLevel(&config.Config{})
	if log.GetLevel() != log.InfoLevel {
		t.Fatalf("level = %s, want info", log.GetLevel())
	}
}
