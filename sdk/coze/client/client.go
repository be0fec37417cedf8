// Package client is the authenticated request pipeline shared by every Coze service:
// URL and header assembly, JSON envelope decoding, error classification and SSE streams.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/router-for-me/CozeSDK/internal/logging"
	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/internal/util"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	log "github.com/sirupsen/logrus"
)

const userAgent = "coze-go-runtime/1.0"

// TokenProvider supplies bearer tokens. forceRefresh asks for a new token even when
// a cached one is still valid.
type TokenProvider interface {
	GetToken(ctx context.Context, forceRefresh bool) (string, error)
}

// Multipart is a pre-built multipart/form-data body.
type Multipart struct {
	Body        []byte
	ContentType string
}

// NewMultipart builds a form with the given fields and an optional file part.
func NewMultipart(fields map[string]string, fileField, fileName string, file io.Reader) (*Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, err
		}
	}
	if file != nil {
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			return nil, err
		}
		if _, err = io.Copy(part, file); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Multipart{Body: buf.Bytes(), ContentType: w.FormDataContentType()}, nil
}

// Client sends requests to one Coze API origin.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streamHTTP *http.Client
	tokens     TokenProvider
	headers    map[string]string
	maxEvents  int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for every call. Streams reuse its transport without the timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenProvider sets the bearer token source.
func WithTokenProvider(p TokenProvider) Option {
	return func(c *Client) { c.tokens = p }
}

// WithHeaders adds default headers sent on every request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) { c.headers = mergeMaps(c.headers, h) }
}

// WithMaxEvents caps the frames read from a single stream.
func WithMaxEvents(n int) Option {
	return func(c *Client) { c.maxEvents = n }
}

// New returns a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: http.DefaultClient,
		maxEvents:  transport.DefaultMaxEvents,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.streamHTTP = transport.WithoutTimeout(c.httpClient)
	return c
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string { return c.baseURL }

// RawRequest describes one HTTP call. Token, when set, overrides the TokenProvider.
// Body may be nil, a string (text/plain), []byte or json.RawMessage (JSON as is),
// a *Multipart, or any value to be JSON encoded.
type RawRequest struct {
	Method  string
	Path    string
	Token   string
	Body    any
	Options RequestOptions
}

// Request performs req and returns the raw response. Non-2xx statuses are not errors here;
// the caller owns and must close the response body.
func (c *Client) Request(ctx context.Context, req RawRequest) (*http.Response, error) {
	return c.do(ctx, c.httpClient, req, false)
}

func (c *Client) do(ctx context.Context, hc *http.Client, req RawRequest, forceRefresh bool) (*http.Response, error) {
	httpReq, err := c.build(ctx, req, forceRefresh)
	if err != nil {
		return nil, err
	}
	entry := log.WithField("component", "coze-client")
	if log.IsLevelEnabled(log.DebugLevel) {
		entry.Debugf("%s %s headers=%v", httpReq.Method, httpReq.URL.String(), util.MaskedHeaders(httpReq.Header))
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apierr.Connection(err)
	}
	logging.WithLogID(logging.ContextWithLogID(ctx, resp.Header.Get(apierr.LogIDHeader))).
		Debugf("%s %s -> %d", httpReq.Method, httpReq.URL.Path, resp.StatusCode)
	return resp, nil
}

func (c *Client) build(ctx context.Context, req RawRequest, forceRefresh bool) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	reader, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, BuildURL(c.baseURL, req.Path, req.Options.Params), reader)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	token := strings.TrimSpace(req.Token)
	if token == "" && c.tokens != nil {
		token, err = c.tokens.GetToken(ctx, forceRefresh)
		if err != nil {
			return nil, err
		}
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Options.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// BuildURL joins base and path and appends params as a query string. A path that already
// carries a query is extended with '&'. Params are encoded in key order.
func BuildURL(base, path string, params map[string]string) string {
	u := base + path
	if len(params) == 0 {
		return u
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var q strings.Builder
	for i, k := range keys {
		if i > 0 {
			q.WriteByte('&')
		}
		q.WriteString(url.QueryEscape(k))
		q.WriteByte('=')
		q.WriteString(url.QueryEscape(params[k]))
	}
	if strings.Contains(path, "?") {
		return u + "&" + q.String()
	}
	return u + "?" + q.String()
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "text/plain; charset=utf-8", nil
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", nil
	case []byte:
		return bytes.NewReader(b), "application/json", nil
	case *Multipart:
		if b == nil {
			return nil, "", nil
		}
		return bytes.NewReader(b.Body), b.ContentType, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", apierr.Validation("encode request body: %v", err)
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}

// refreshable reports whether an authentication failure is worth one forced refresh.
func (c *Client) refreshable() bool {
	if c.tokens == nil {
		return false
	}
	if s, ok := c.tokens.(interface{ Static() bool }); ok && s.Static() {
		return false
	}
	return true
}

var errUnexpectedJSON = errors.New("expected an event stream, got a JSON body")
