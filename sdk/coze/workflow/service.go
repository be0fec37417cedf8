// Package workflow runs Coze workflows, synchronously or as event streams, and resumes
// workflows paused on an interrupt.
package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/client"
	"github.com/router-for-me/CozeSDK/sdk/coze/stream"
)

const (
	pathRun    = "/v1/workflow/run"
	pathStream = "/v1/workflow/stream_run"
	pathResume = "/v1/workflow/stream_resume"
	pathChat   = "/v1/workflows/chat"
)

// Service issues workflow calls through a shared client.
type Service struct {
	client *client.Client
}

// NewService returns a workflow service bound to c.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// Run executes a workflow and waits for its output.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if strings.TrimSpace(req.WorkflowID) == "" {
		return nil, apierr.Validation("workflow id is required")
	}
	body, header, err := client.Do(ctx, s.client, http.MethodPost, pathRun, req, client.RequestOptions{})
	if err != nil {
		return nil, err
	}
	var out RunResult
	if err = json.Unmarshal(body, &out); err != nil {
		return nil, apierr.JSONParse(body, err)
	}
	out.LogID = header.Get(apierr.LogIDHeader)
	return &out, nil
}

// Stream executes a workflow and streams node messages, interrupts and the final Done.
func (s *Service) Stream(ctx context.Context, req RunRequest) (<-chan stream.Chunk[*Event], error) {
	if strings.TrimSpace(req.WorkflowID) == "" {
		return nil, apierr.Validation("workflow id is required")
	}
	return s.open(ctx, pathStream, req, DecodeEvent)
}

// Resume continues a workflow stream after an Interrupt.
func (s *Service) Resume(ctx context.Context, req ResumeRequest) (<-chan stream.Chunk[*Event], error) {
	if strings.TrimSpace(req.WorkflowID) == "" {
		return nil, apierr.Validation("workflow id is required")
	}
	if strings.TrimSpace(req.EventID) == "" {
		return nil, apierr.Validation("event id is required")
	}
	if req.InterruptType == 0 {
		return nil, apierr.Validation("interrupt type is required")
	}
	return s.open(ctx, pathResume, req, DecodeEvent)
}

// Chat runs a chat-flow workflow. Its stream mixes workflow and chat events.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (<-chan stream.Chunk[*Event], error) {
	if strings.TrimSpace(req.WorkflowID) == "" {
		return nil, apierr.Validation("workflow id is required")
	}
	if len(req.AdditionalMessages) == 0 {
		return nil, apierr.Validation("additional messages must not be empty")
	}
	return s.open(ctx, pathChat, req, DecodeCombined)
}

func (s *Service) open(ctx context.Context, path string, body any, decode func(transport.Frame) (*Event, error)) (<-chan stream.Chunk[*Event], error) {
	es, err := s.client.SSE(ctx, path, body, client.RequestOptions{})
	if err != nil {
		return nil, err
	}
	return stream.Pump[*Event](ctx, es, decode), nil
}
