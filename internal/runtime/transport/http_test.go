package transport

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

func TestDecodeResponseBody_Codings(t *testing.T) {
	payload := []byte(`{"code":0,"msg":"ok"}`)

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(payload)
	_ = gw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write(payload)
	_ = bw.Close()

	zw, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	zs := zw.EncodeAll(payload, nil)
	_ = zw.Close()

	cases := map[string][]byte{
		"":         payload,
		"identity": payload,
		"gzip":     gz.Bytes(),
		"br":       br.Bytes(),
		"zstd":     zs,
	}
	for encoding, body := range cases {
		rc, errDecode := DecodeResponseBody(io.NopCloser(bytes.NewReader(body)), encoding)
		if errDecode != nil {
			t.Fatalf("DecodeResponseBody(%q) error = %v", encoding, errDecode)
		}
		got, errRead := io.ReadAll(rc)
		_ = rc.Close()
		if errRead != nil {
			t.Fatalf("read %q: %v", encoding, errRead)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("DecodeResponseBody(%q) = %q, want %q", encoding, got, payload)
		}
	}
}

func TestReadAll_ClosesBody(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("hello")}
	resp := &http.Response{Body: body, Header: http.Header{}}

	got, err := ReadAll(resp)
	if err != nil || string(got) != "hello" {
		t.Fatalf("ReadAll() = %q, %v", got, err)
	}
	if !body.closed {
		t.Fatal("ReadAll() did not close the body")
	}
}

func TestNewHTTPClient_Proxies(t *testing.T) {
	if _, err := NewHTTPClient("", time.Second); err != nil {
		t.Fatalf("NewHTTPClient(no proxy) error = %v", err)
	}
	c, err := NewHTTPClient("http://127.0.0.1:8080", time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient(http proxy) error = %v", err)
	}
	rt := c.Transport.(*http.Transport)
	req, _ := http.NewRequest(http.MethodGet, "https://api.coze.com/v3/chat", nil)
	proxyURL, _ := rt.Proxy(req)
	if proxyURL == nil || proxyURL.Host != "127.0.0.1:8080" {
		t.Fatalf("proxy = %v, want 127.0.0.1:8080", proxyURL)
	}
	if _, err = NewHTTPClient("socks5://127.0.0.1:1080", time.Second); err != nil {
		t.Fatalf("NewHTTPClient(socks5) error = %v", err)
	}
	if _, err = NewHTTPClient("ftp://127.0.0.1", time.Second); err == nil {
		t.Fatal("NewHTTPClient(ftp) error = nil, want unsupported scheme")
	}
}

func TestWithoutTimeout(t *testing.T) {
	c := &http.Client{Timeout: time.Second}
	if got := WithoutTimeout(c); got.Timeout != 0 || c.Timeout != time.Second {
		t.Fatalf("WithoutTimeout() timeout = %v, original = %v", got.Timeout, c.Timeout)
	}
}
