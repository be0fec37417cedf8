package cmd

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CozeSDK/internal/config"
	"github.com/router-for-me/CozeSDK/internal/cozetest"
	"github.com/router-for-me/CozeSDK/sdk/coze"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/chat"
)

func newTestClient(t *testing.T, srv *cozetest.Server) *coze.Client {
	t.Helper()
	cfg := &config.Config{BaseURL: srv.URL, Auth: config.AuthConfig{Token: "pat_0123456789"}}
	cz, err := coze.New(cfg, coze.WithChatOptions(chat.WithPollInterval(time.Millisecond)))
	if err != nil {
		t.Fatalf("coze.New: %v", err)
	}
	return cz
}

func TestDoChat_PrintsAnswers(t *testing.T) {
	srv := cozetest.New(t)
	srv.Handle(http.MethodPost, "/v3/chat", func(c *gin.Context) {
		cozetest.OK(c, gin.H{"id": "C1", "conversation_id": "CV1", "status": "in_progress"})
	})
	srv.Handle(http.MethodGet, "/v3/chat/retrieve", func(c *gin.Context) {
		cozetest.OK(c, gin.H{"id": "C1", "conversation_id": "CV1", "status": "completed"})
	})
	srv.Handle(http.MethodGet, "/v3/chat/message/list", func(c *gin.Context) {
		cozetest.OK(c, []gin.H{
			{"role": "assistant", "type": "verbose", "content": "{}"},
			{"role": "assistant", "type": "answer", "content": "Hello there"},
		})
	})

	var out bytes.Buffer
	if err := DoChat(context.Background(), newTestClient(t, srv), ChatOptions{BotID: "B", Message: "hi"}, &out); err != nil {
		t.Fatalf("DoChat: %v", err)
	}
	if got := out.String(); got != "Hello there\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestDoChat_ReportsFailure(t *testing.T) {
	srv := cozetest.New(t)
	srv.Handle(http.MethodPost, "/v3/chat", func(c *gin.Context) {
		cozetest.OK(c, gin.H{"id": "C1", "conversation_id": "CV1", "status": "failed", "last_error": gin.H{"code": 4011, "msg": "quota"}})
	})
	srv.Handle(http.MethodGet, "/v3/chat/message/list", func(c *gin.Context) { cozetest.OK(c, []gin.H{}) })

	err := DoChat(context.Background(), newTestClient(t, srv), ChatOptions{BotID: "B", Message: "hi"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("err = %v, want failure with quota", err)
	}
}

func TestDoStream_PrintsDeltas(t *testing.T) {
	srv := cozetest.New(t)
	srv.Handle(http.MethodPost, "/v3/chat", func(c *gin.Context) {
		cozetest.Stream(c,
			cozetest.Frame{Event: "conversation.message.delta", Data: gin.H{"role": "assistant", "content": "Hel"}},
			cozetest.Frame{Event: "conversation.message.delta", Data: gin.H{"role": "assistant", "content": "lo"}},
			cozetest.Frame{Event: "done", Data: "[DONE]"},
		)
	})

	var out bytes.Buffer
	if err := DoStream(context.Background(), newTestClient(t, srv), ChatOptions{BotID: "B", Message: "hi"}, &out); err != nil {
		t.Fatalf("DoStream: %v", err)
	}
	if got := out.String(); got != "Hello\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestDoWorkflow(t *testing.T) {
	srv := cozetest.New(t)
	srv.Handle(http.MethodPost, "/v1/workflow/run", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": `{"answer":1}`, "execute_id": "E1"})
	})
	srv.Handle(http.MethodPost, "/v1/workflow/stream_run", func(c *gin.Context) {
		cozetest.Stream(c,
			cozetest.Frame{Event: "Message", Data: gin.H{"content": "out", "node_is_finish": true}},
			cozetest.Frame{Event: "Done", Data: gin.H{"debug_url": "https://debug"}},
		)
	})
	cz := newTestClient(t, srv)

	var out bytes.Buffer
	if err := DoWorkflow(context.Background(), cz, WorkflowOptions{WorkflowID: "W1", Parameters: `{"x":1}`}, &out); err != nil {
		t.Fatalf("DoWorkflow: %v", err)
	}
	if got := out.String(); got != "{\"answer\":1}\n" {
		t.Fatalf("output = %q", got)
	}

	out.Reset()
	if err := DoWorkflow(context.Background(), cz, WorkflowOptions{WorkflowID: "W1", Stream: true}, &out); err != nil {
		t.Fatalf("DoWorkflow(stream): %v", err)
	}
	if got := out.String(); got != "out\ndebug: https://debug\n" {
		t.Fatalf("stream output = %q", got)
	}

	if err := DoWorkflow(context.Background(), cz, WorkflowOptions{WorkflowID: "W1", Parameters: "[1"}, &out); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("bad parameters err = %v", err)
	}
}

func TestDoToken_MasksByDefault(t *testing.T) {
	srv := cozetest.New(t)
	cz := newTestClient(t, srv)

	var out bytes.Buffer
	if err := DoToken(context.Background(), cz, false, &out); err != nil {
		t.Fatalf("DoToken: %v", err)
	}
	if got := out.String(); got != "pat_...6789\n" {
		t.Fatalf("masked = %q", got)
	}
	out.Reset()
	_ = DoToken(context.Background(), cz, true, &out)
	if got := out.String(); got != "pat_0123456789\n" {
		t.Fatalf("revealed = %q", got)
	}
}
