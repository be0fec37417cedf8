package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Response is the envelope wrapped around every JSON reply. Code 0 means success.
type Response[T any] struct {
	Code         int               `json:"code"`
	Msg          string            `json:"msg"`
	Data         T                 `json:"data"`
	RequestID    string            `json:"request_id,omitempty"`
	Detail       map[string]string `json:"detail,omitempty"`
	Error        json.RawMessage   `json:"error,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Total        *int              `json:"total,omitempty"`

	// LogID is the x-tt-logid of the reply.
	LogID string `json:"-"`
}

// Get issues a GET and decodes the envelope into Response[T].
func Get[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (*Response[T], error) {
	return call[T](ctx, c, http.MethodGet, path, nil, opts)
}

// Post issues a POST with payload as the body.
func Post[T any](ctx context.Context, c *Client, path string, payload any, opts RequestOptions) (*Response[T], error) {
	return call[T](ctx, c, http.MethodPost, path, payload, opts)
}

// Put issues a PUT with payload as the body.
func Put[T any](ctx context.Context, c *Client, path string, payload any, opts RequestOptions) (*Response[T], error) {
	return call[T](ctx, c, http.MethodPut, path, payload, opts)
}

// Delete issues a DELETE. payload may be nil.
func Delete[T any](ctx context.Context, c *Client, path string, payload any, opts RequestOptions) (*Response[T], error) {
	return call[T](ctx, c, http.MethodDelete, path, payload, opts)
}

// Data unwraps the payload of a successful response.
func Data[T any](resp *Response[T], err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if resp == nil {
		return zero, nil
	}
	return resp.Data, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, payload any, opts RequestOptions) (*Response[T], error) {
	body, header, err := Do(ctx, c, method, path, payload, opts)
	if err != nil {
		return nil, err
	}
	var out Response[T]
	if err = json.Unmarshal(body, &out); err != nil {
		return nil, apierr.JSONParse(body, err)
	}
	out.LogID = header.Get(apierr.LogIDHeader)
	return &out, nil
}

// Do performs a call and returns the raw body of a successful envelope, for endpoints
// whose replies carry fields outside Response. An authentication failure is retried
// once with a forced token refresh when the token provider can refresh.
func Do(ctx context.Context, c *Client, method, path string, payload any, opts RequestOptions) ([]byte, http.Header, error) {
	req := RawRequest{Method: method, Path: path, Body: payload, Options: opts}
	body, header, err := c.exchange(ctx, req, false)
	if err != nil && apierr.IsKind(err, apierr.KindAuthentication) && c.refreshable() {
		log.Debugf("client: %s %s rejected credentials, retrying with a fresh token", method, path)
		body, header, err = c.exchange(ctx, req, true)
	}
	return body, header, err
}

// exchange performs req and returns the body of a successful envelope. Failures are
// classified: non-2xx statuses and nonzero envelope codes become *apierr.Error.
func (c *Client) exchange(ctx context.Context, req RawRequest, forceRefresh bool) ([]byte, http.Header, error) {
	resp, err := c.do(ctx, c.httpClient, req, forceRefresh)
	if err != nil {
		return nil, nil, err
	}
	body, err := transport.ReadAll(resp)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, apierr.Connection(err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, apierr.Classify(resp.StatusCode, body, resp.Header)
	}
	if code := gjson.GetBytes(body, "code"); code.Exists() && code.Int() != 0 {
		return nil, nil, apierr.Classify(resp.StatusCode, body, resp.Header)
	}
	return body, resp.Header, nil
}
