// Package transport provides the HTTP plumbing used by the Coze client: a proxy aware
// http.Client, transparent response decompression and a Server-Sent-Events frame reader.
package transport

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// AcceptEncoding lists the content codings DecodeResponseBody understands.
const AcceptEncoding = "gzip, deflate, br, zstd"

// NewHTTPClient builds an http.Client that routes through proxyURL when it is set.
// Supported proxy schemes are http, https, socks5 and socks5h.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("transport: default transport is not *http.Transport")
	}
	rt := base.Clone()

	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("transport: invalid proxy url %q: %w", proxyURL, err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			rt.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			dialer, errDialer := proxy.FromURL(u, proxy.Direct)
			if errDialer != nil {
				return nil, fmt.Errorf("transport: socks proxy %q: %w", proxyURL, errDialer)
			}
			rt.Proxy = nil
			if cd, okCtx := dialer.(proxy.ContextDialer); okCtx {
				rt.DialContext = cd.DialContext
			} else {
				rt.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				}
			}
		default:
			return nil, fmt.Errorf("transport: unsupported proxy scheme %q", u.Scheme)
		}
		log.Debugf("transport: using %s proxy %s", u.Scheme, u.Host)
	}

	return &http.Client{Transport: rt, Timeout: timeout}, nil
}

// WithoutTimeout returns a copy of c sharing its transport but with no overall timeout.
// Streaming responses are bounded by their context instead.
func WithoutTimeout(c *http.Client) *http.Client {
	if c == nil {
		return &http.Client{}
	}
	cp := *c
	cp.Timeout = 0
	return &cp
}

type compositeReadCloser struct {
	io.Reader
	closers []func() error
}

func (c *compositeReadCloser) Close() error {
	var firstErr error
	for i := range c.closers {
		if c.closers[i] == nil {
			continue
		}
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DecodeResponseBody wraps body with a decompressor for contentEncoding.
// Unknown codings are passed through untouched.
func DecodeResponseBody(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	if body == nil {
		return nil, fmt.Errorf("response body is nil")
	}
	if contentEncoding == "" {
		return body, nil
	}
	encodings := strings.Split(contentEncoding, ",")
	for _, raw := range encodings {
		encoding := strings.TrimSpace(strings.ToLower(raw))
		switch encoding {
		case "", "identity":
			continue
		case "gzip":
			gzipReader, err := gzip.NewReader(body)
			if err != nil {
				_ = body.Close()
				return nil, fmt.Errorf("failed to create gzip reader: %w", err)
			}
			return &compositeReadCloser{
				Reader: gzipReader,
				closers: []func() error{
					gzipReader.Close,
					func() error { return body.Close() },
				},
			}, nil
		case "deflate":
			deflateReader := flate.NewReader(body)
			return &compositeReadCloser{
				Reader: deflateReader,
				closers: []func() error{
					deflateReader.Close,
					func() error { return body.Close() },
				},
			}, nil
		case "br":
			return &compositeReadCloser{
				Reader: brotli.NewReader(body),
				closers: []func() error{
					func() error { return body.Close() },
				},
			}, nil
		case "zstd":
			decoder, err := zstd.NewReader(body)
			if err != nil {
				_ = body.Close()
				return nil, fmt.Errorf("failed to create zstd reader: %w", err)
			}
			return &compositeReadCloser{
				Reader: decoder,
				closers: []func() error{
					func() error { decoder.Close(); return nil },
					func() error { return body.Close() },
				},
			}, nil
		default:
			continue
		}
	}
	return body, nil
}

// ReadAll decodes and fully reads resp.Body, closing it afterwards.
func ReadAll(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("response body is nil")
	}
	body, err := DecodeResponseBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	defer func() {
		if errClose := body.Close(); errClose != nil {
			log.Errorf("response body close error: %v", errClose)
		}
	}()
	return io.ReadAll(body)
}
