package logging

import (
	"context"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestLogFormatter_IncludesRequestID(t *testing.T) {
	entry := &log.Entry{
		Logger:  log.New(),
		Data:    log.Fields{"request_id": "20250101ABCDEF"},
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "chat polling slow\n",
	}

	out, err := (&LogFormatter{}).Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "[2025-01-02 03:04:05] [20250101ABCDEF] [warn ] chat polling slow\n"
	if string(out) != want {
		t.Fatalf("Format() = %q, want %q", string(out), want)
	}
}

func TestLogFormatter_DefaultRequestID(t *testing.T) {
	entry := &log.Entry{Logger: log.New(), Data: log.Fields{}, Level: log.InfoLevel, Message: "x"}

	out, err := (&LogFormatter{}).Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(string(out), "[--------]") {
		t.Fatalf("Format() = %q, want placeholder request id", string(out))
	}
}

func TestWithLogID(t *testing.T) {
	ctx := ContextWithLogID(context.Background(), " log-1 ")
	if got := LogIDFromContext(ctx); got != "log-1" {
		t.Fatalf("LogIDFromContext() = %q, want %q", got, "log-1")
	}
	if got, _ := WithLogID(ctx).Data["request_id"].(string); got != "log-1" {
		t.Fatalf("WithLogID().Data[request_id] = %q, want %q", got, "log-1")
	}
	if _, ok := WithLogID(context.Background()).Data["request_id"]; ok {
		t.Fatal("WithLogID() without id must not set request_id")
	}
	if ContextWithLogID(context.Background(), "") != context.Background() {
		t.Fatal("ContextWithLogID() with blank id must return the parent context")
	}
}
