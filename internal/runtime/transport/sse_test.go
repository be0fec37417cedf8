package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func collect(t *testing.T, ch <-chan FrameChunk) ([]Frame, error) {
	t.Helper()
	var frames []Frame
	var err error
	for chunk := range ch {
		if chunk.Err != nil {
			err = chunk.Err
			continue
		}
		frames = append(frames, chunk.Frame)
	}
	return frames, err
}

func TestReadFrames_ParsesEventsInOrder(t *testing.T) {
	raw := "event: conversation.message.delta\ndata: {\"content\":\"he\"}\n\n" +
		": keep-alive\n\n" +
		"event:conversation.message.delta\r\ndata: {\"content\":\"llo\"}\r\n\r\n" +
		"event: done\ndata: [DONE]\n"
	body := &trackingBody{Reader: strings.NewReader(raw)}

	frames, err := collect(t, ReadFrames(context.Background(), body, SSEOptions{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3: %#v", len(frames), frames)
	}
	if frames[0].Event != "conversation.message.delta" || frames[0].Data != `{"content":"he"}` {
		t.Fatalf("frames[0] = %#v", frames[0])
	}
	if frames[1].Data != `{"content":"llo"}` {
		t.Fatalf("frames[1].Data = %q", frames[1].Data)
	}
	if frames[2].Event != "done" || frames[2].Data != "[DONE]" {
		t.Fatalf("frames[2] = %#v, trailing frame without blank line must flush", frames[2])
	}
	if !body.closed {
		t.Fatal("body was not closed")
	}
}

func TestReadFrames_JoinsMultilineData(t *testing.T) {
	raw := "event: Message\ndata: line1\ndata: line2\n\n"
	frames, err := collect(t, ReadFrames(context.Background(), io.NopCloser(strings.NewReader(raw)), SSEOptions{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 || frames[0].Data != "line1\nline2" {
		t.Fatalf("frames = %#v", frames)
	}
}

func TestReadFrames_StopAfterEmitsThenEnds(t *testing.T) {
	raw := "event: a\ndata: 1\n\nevent: done\ndata: x\n\nevent: a\ndata: 2\n\n"
	body := &trackingBody{Reader: strings.NewReader(raw)}
	opts := SSEOptions{Inspect: func(f Frame) (Verdict, error) {
		if f.Event == "done" {
			return StopAfter, nil
		}
		return Continue, nil
	}}

	frames, err := collect(t, ReadFrames(context.Background(), body, opts))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 2 || frames[1].Event != "done" {
		t.Fatalf("frames = %#v, want done as last frame", frames)
	}
	if !body.closed {
		t.Fatal("body was not closed after terminal frame")
	}
}

func TestReadFrames_StopBeforeSurfacesError(t *testing.T) {
	raw := "event: a\ndata: 1\n\nevent: error\ndata: {\"code\":4000}\n\nevent: a\ndata: 2\n\n"
	boom := errors.New("boom")
	opts := SSEOptions{Inspect: func(f Frame) (Verdict, error) {
		if f.Event == "error" {
			return StopBefore, boom
		}
		return Continue, nil
	}}

	frames, err := collect(t, ReadFrames(context.Background(), io.NopCloser(strings.NewReader(raw)), opts))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(frames) != 1 || frames[0].Data != "1" {
		t.Fatalf("frames = %#v, error frame must not be emitted", frames)
	}
}

func TestReadFrames_EnforcesEventCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "event: a\ndata: %d\n\n", i)
	}

	frames, err := collect(t, ReadFrames(context.Background(), io.NopCloser(strings.NewReader(b.String())), SSEOptions{MaxEvents: 3}))
	if !errors.Is(err, ErrTooManyEvents) {
		t.Fatalf("err = %v, want %v", err, ErrTooManyEvents)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
}

func TestReadFrames_DefaultCapIs500(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 501; i++ {
		fmt.Fprintf(&b, "event: a\ndata: %d\n\n", i)
	}

	frames, err := collect(t, ReadFrames(context.Background(), io.NopCloser(strings.NewReader(b.String())), SSEOptions{}))
	if !errors.Is(err, ErrTooManyEvents) {
		t.Fatalf("err = %v, want %v", err, ErrTooManyEvents)
	}
	if len(frames) != 500 {
		t.Fatalf("got %d frames, want 500", len(frames))
	}
}

func TestReadFrames_CancelReleasesBody(t *testing.T) {
	pr, pw := io.Pipe()
	body := &pipeBody{PipeReader: pr}
	ctx, cancel := context.WithCancel(context.Background())

	ch := ReadFrames(ctx, body, SSEOptions{})
	go func() {
		_, _ = pw.Write([]byte("event: a\ndata: 1\n\n"))
	}()
	first := <-ch
	if first.Err != nil || first.Frame.Data != "1" {
		t.Fatalf("first chunk = %#v", first)
	}

	cancel()
	_ = pw.CloseWithError(context.Canceled)
	for range ch {
	}
	if !body.closed {
		t.Fatal("body was not closed after cancel")
	}
}

type pipeBody struct {
	*io.PipeReader
	closed bool
}

func (p *pipeBody) Close() error {
	p.closed = true
	return p.PipeReader.Close()
}
