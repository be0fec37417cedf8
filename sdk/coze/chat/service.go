// Package chat implements chat turns against the Coze v3 API: create, poll to completion,
// stream deltas, submit tool outputs and cancel.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/client"
	"github.com/router-for-me/CozeSDK/sdk/coze/stream"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"
)

const (
	pathCreate            = "/v3/chat"
	pathRetrieve          = "/v3/chat/retrieve"
	pathMessageList       = "/v3/chat/message/list"
	pathSubmitToolOutputs = "/v3/chat/submit_tool_outputs"
	pathCancel            = "/v3/chat/cancel"

	// DefaultPollInterval is the delay between status polls.
	DefaultPollInterval = 1000 * time.Millisecond
	// DefaultPollTimeout bounds the time spent polling one chat.
	DefaultPollTimeout = 60000 * time.Millisecond
)

// ErrPollTimeout is returned when a chat does not reach a terminal status in time.
// CreateAndPoll also asks the server to cancel the chat before returning it.
var ErrPollTimeout = errors.New("polling timed out")

// Clock abstracts time for the poll loop.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done, returning ctx's error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Service issues chat calls through a shared client.
type Service struct {
	client       *client.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	clock        Clock
}

// Option configures a Service.
type Option func(*Service)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithPollTimeout overrides DefaultPollTimeout.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

// WithClock replaces the wall clock used by CreateAndPoll.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewService returns a chat service bound to c.
func NewService(c *client.Client, opts ...Option) *Service {
	s := &Service{
		client:       c,
		pollInterval: DefaultPollInterval,
		pollTimeout:  DefaultPollTimeout,
		clock:        realClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a chat turn without streaming and returns its first snapshot.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Chat, error) {
	body, opts, err := createBody(req, false)
	if err != nil {
		return nil, err
	}
	resp, err := client.Post[*Chat](ctx, s.client, pathCreate, body, opts)
	return snapshot("create chat", resp, err)
}

// snapshot unwraps a chat envelope. A successful envelope without data is a decode error.
func snapshot(call string, resp *client.Response[*Chat], err error) (*Chat, error) {
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Data == nil {
		return nil, apierr.JSONParse([]byte(`{"data":null}`), fmt.Errorf("%s returned no data", call))
	}
	return resp.Data, nil
}

// CreateAndPoll creates a chat and polls it until it reaches a terminal status, then
// fetches its messages. A failed chat is returned as a result, not as an error.
func (s *Service) CreateAndPoll(ctx context.Context, req CreateRequest) (*PollResult, error) {
	c, err := s.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	start := s.clock.Now()
	polls := 0
	for !c.Status.IsTerminal() {
		if elapsed := s.clock.Now().Sub(start); elapsed > s.pollTimeout {
			s.cancelAfterTimeout(ctx, c)
			return nil, fmt.Errorf("chat %s: %w after %s (%d polls)", c.ID, ErrPollTimeout, elapsed, polls)
		}
		if err = s.clock.Sleep(ctx, s.pollInterval); err != nil {
			return nil, err
		}
		next, errRetrieve := s.Retrieve(ctx, c.ConversationID, c.ID)
		if errRetrieve != nil {
			return nil, errRetrieve
		}
		polls++
		c = next
	}
	log.Debugf("chat %s reached %s after %d polls", c.ID, c.Status, polls)

	messages, err := s.ListMessages(ctx, c.ConversationID, c.ID)
	if err != nil {
		return nil, err
	}
	return &PollResult{Chat: c, Messages: messages}, nil
}

func (s *Service) cancelAfterTimeout(ctx context.Context, c *Chat) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Cancel(ctx, c.ConversationID, c.ID); err != nil {
		log.Warnf("chat %s: cancel after poll timeout failed: %v", c.ID, err)
	}
}

// Stream creates a chat and returns its decoded events in arrival order. The channel
// ends after the done event or the first error.
func (s *Service) Stream(ctx context.Context, req CreateRequest) (<-chan stream.Chunk[*StreamEvent], error) {
	body, opts, err := createBody(req, true)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, pathCreate, body, opts)
}

// Retrieve fetches the current snapshot of a chat.
func (s *Service) Retrieve(ctx context.Context, conversationID, chatID string) (*Chat, error) {
	opts, err := chatParams(conversationID, chatID)
	if err != nil {
		return nil, err
	}
	resp, err := client.Get[*Chat](ctx, s.client, pathRetrieve, opts)
	return snapshot("retrieve chat", resp, err)
}

// ListMessages returns the messages produced by a chat.
func (s *Service) ListMessages(ctx context.Context, conversationID, chatID string) ([]Message, error) {
	opts, err := chatParams(conversationID, chatID)
	if err != nil {
		return nil, err
	}
	return client.Data[[]Message](client.Get[[]Message](ctx, s.client, pathMessageList, opts))
}

// SubmitToolOutputs answers the tool calls of a chat in requires_action.
func (s *Service) SubmitToolOutputs(ctx context.Context, req SubmitToolOutputsRequest) (*Chat, error) {
	body, opts, err := submitBody(req, false)
	if err != nil {
		return nil, err
	}
	resp, err := client.Post[*Chat](ctx, s.client, pathSubmitToolOutputs, body, opts)
	return snapshot("submit tool outputs", resp, err)
}

// SubmitToolOutputsStream is SubmitToolOutputs with the continuation streamed.
func (s *Service) SubmitToolOutputsStream(ctx context.Context, req SubmitToolOutputsRequest) (<-chan stream.Chunk[*StreamEvent], error) {
	body, opts, err := submitBody(req, true)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, pathSubmitToolOutputs, body, opts)
}

// Cancel stops a chat that has not finished.
func (s *Service) Cancel(ctx context.Context, conversationID, chatID string) (*Chat, error) {
	if _, err := chatParams(conversationID, chatID); err != nil {
		return nil, err
	}
	payload := map[string]string{"conversation_id": conversationID, "chat_id": chatID}
	resp, err := client.Post[*Chat](ctx, s.client, pathCancel, payload, client.RequestOptions{})
	return snapshot("cancel chat", resp, err)
}

func (s *Service) open(ctx context.Context, path string, body []byte, opts client.RequestOptions) (<-chan stream.Chunk[*StreamEvent], error) {
	es, err := s.client.SSE(ctx, path, body, opts)
	if err != nil {
		return nil, err
	}
	return stream.Pump[*StreamEvent](ctx, es, func(f transport.Frame) (*StreamEvent, error) {
		ev, errDecode := DecodeEvent(f)
		if ev != nil {
			ev.LogID = es.LogID
		}
		return ev, errDecode
	}), nil
}

func createBody(req CreateRequest, streaming bool) ([]byte, client.RequestOptions, error) {
	var opts client.RequestOptions
	if strings.TrimSpace(req.BotID) == "" {
		return nil, opts, apierr.Validation("bot id is required")
	}
	if len(req.AdditionalMessages) == 0 {
		return nil, opts, apierr.Validation("additional messages must not be empty")
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = defaultUserID(req.BotID)
	}
	if req.ConversationID != "" {
		opts = opts.WithParam("conversation_id", req.ConversationID)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, opts, apierr.Validation("encode chat request: %v", err)
	}
	body, err = sjson.SetBytes(body, "stream", streaming)
	if err != nil {
		return nil, opts, apierr.Validation("encode chat request: %v", err)
	}
	return body, opts, nil
}

func submitBody(req SubmitToolOutputsRequest, streaming bool) ([]byte, client.RequestOptions, error) {
	opts, err := chatParams(req.ConversationID, req.ChatID)
	if err != nil {
		return nil, opts, err
	}
	if len(req.ToolOutputs) == 0 {
		return nil, opts, apierr.Validation("tool outputs must not be empty")
	}
	for i, out := range req.ToolOutputs {
		if strings.TrimSpace(out.ToolCallID) == "" {
			return nil, opts, apierr.Validation("tool output %d is missing tool_call_id", i)
		}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, opts, apierr.Validation("encode tool outputs: %v", err)
	}
	body, err = sjson.SetBytes(body, "stream", streaming)
	if err != nil {
		return nil, opts, apierr.Validation("encode tool outputs: %v", err)
	}
	return body, opts, nil
}

func chatParams(conversationID, chatID string) (client.RequestOptions, error) {
	if strings.TrimSpace(conversationID) == "" {
		return client.RequestOptions{}, apierr.Validation("conversation id is required")
	}
	if strings.TrimSpace(chatID) == "" {
		return client.RequestOptions{}, apierr.Validation("chat id is required")
	}
	return client.RequestOptions{Params: map[string]string{
		"conversation_id": conversationID,
		"chat_id":         chatID,
	}}, nil
}
