package client

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/stream"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// EventStream is an open SSE response. Frames arrive in order on Frames; Close
// releases the connection and may be called more than once.
type EventStream struct {
	frames <-chan transport.FrameChunk
	cancel context.CancelFunc
	// LogID is the x-tt-logid of the response.
	LogID string
}

// Frames returns the frame channel. It is closed when the stream ends.
func (s *EventStream) Frames() <-chan transport.FrameChunk { return s.frames }

// Close stops the stream.
func (s *EventStream) Close() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}

// SSE opens a streaming POST at path. An error frame ends the stream with a classified
// error and is not delivered; done frames are delivered last.
func (c *Client) SSE(ctx context.Context, path string, body any, opts RequestOptions) (*EventStream, error) {
	opts = opts.Merge(RequestOptions{Headers: map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
		"Connection":    "keep-alive",
	}})
	req := RawRequest{Method: http.MethodPost, Path: path, Body: body, Options: opts}

	streamCtx, cancel := context.WithCancel(ctx)
	resp, err := c.openStream(streamCtx, req, false)
	if err != nil && apierr.IsKind(err, apierr.KindAuthentication) && c.refreshable() {
		log.Debugf("client: stream %s rejected credentials, retrying with a fresh token", path)
		resp, err = c.openStream(streamCtx, req, true)
	}
	if err != nil {
		cancel()
		return nil, err
	}

	decoded, err := transport.DecodeResponseBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		cancel()
		return nil, apierr.Connection(err)
	}
	frames := transport.ReadFrames(streamCtx, decoded, transport.SSEOptions{
		MaxEvents: c.maxEvents,
		Inspect:   inspectFrame,
	})
	return &EventStream{frames: frames, cancel: cancel, LogID: resp.Header.Get(apierr.LogIDHeader)}, nil
}

func (c *Client) openStream(ctx context.Context, req RawRequest, forceRefresh bool) (*http.Response, error) {
	resp, err := c.do(ctx, c.streamHTTP, req, forceRefresh)
	if err != nil {
		return nil, err
	}
	failed := resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !failed && mediaType != "application/json" {
		return resp, nil
	}
	// A JSON reply to a stream request is an error envelope.
	body, errRead := transport.ReadAll(resp)
	if errRead != nil {
		return nil, apierr.Connection(errRead)
	}
	if !failed && gjson.GetBytes(body, "code").Int() == 0 {
		return nil, apierr.JSONParse(body, errUnexpectedJSON)
	}
	return nil, apierr.Classify(resp.StatusCode, body, resp.Header)
}

func inspectFrame(f transport.Frame) (transport.Verdict, error) {
	if strings.TrimSpace(f.Data) == stream.DoneSentinel {
		return transport.StopAfter, nil
	}
	t, ok := stream.Classify(f.Event)
	if !ok {
		return transport.Continue, nil
	}
	switch {
	case t == stream.EventError:
		return transport.StopBefore, StreamError(f.Data)
	case t.IsTerminal():
		return transport.StopAfter, nil
	default:
		return transport.Continue, nil
	}
}

// StreamError classifies the data of an error frame.
func StreamError(data string) *apierr.Error {
	e := apierr.Classify(http.StatusOK, []byte(data), nil)
	if e.Code == 0 && e.Message == "" {
		e.Message = strings.TrimSpace(data)
	}
	return e
}
