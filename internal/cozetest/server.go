// Package cozetest runs an in-process fake of the Coze HTTP API for package tests.
package cozetest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// Request is one call observed by the fake server.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is a gin engine behind an httptest listener that records every request.
type Server struct {
	*httptest.Server
	Engine *gin.Engine

	mu       sync.Mutex
	requests []Request
}

// New starts a server and registers its shutdown with t.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &Server{Engine: gin.New()}
	s.Engine.Use(s.record)
	s.Server = httptest.NewServer(s.Engine)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) record(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
		Header: c.Request.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()
	c.Next()
}

// Handle registers h for method and path.
func (s *Server) Handle(method, path string, h gin.HandlerFunc) {
	s.Engine.Handle(method, path, h)
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns the number of recorded requests to path.
func (s *Server) Count(path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request to path.
func (s *Server) Last(path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// OK writes a success envelope around data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "", "data": data})
}

// Fail writes an error envelope with the given HTTP status and envelope code.
func Fail(c *gin.Context, status, code int, msg string) {
	c.JSON(status, gin.H{"code": code, "msg": msg})
}

// Frame is one SSE frame written by Stream.
type Frame struct {
	Event string
	Data  any
}

// Stream writes frames as a text/event-stream response. String data is written as is,
// anything else is JSON encoded.
func Stream(c *gin.Context, frames ...Frame) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	for _, f := range frames {
		var data string
		switch v := f.Data.(type) {
		case string:
			data = v
		default:
			raw, _ := json.Marshal(v)
			data = string(raw)
		}
		var b strings.Builder
		if f.Event != "" {
			fmt.Fprintf(&b, "event: %s\n", f.Event)
		}
		for _, line := range strings.Split(data, "\n") {
			fmt.Fprintf(&b, "data: %s\n", line)
		}
		b.WriteString("\n")
		_, _ = c.Writer.WriteString(b.String())
		c.Writer.Flush()
	}
}
