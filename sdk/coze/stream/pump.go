package stream

import (
	"context"
	"errors"

	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	log "github.com/sirupsen/logrus"
)

// ErrSkip tells Pump to drop a frame and keep reading.
var ErrSkip = errors.New("stream: skip frame")

// Chunk carries either a decoded value or the terminal error of a stream.
type Chunk[T any] struct {
	Value T
	Err   error
}

// Source is an open frame stream. Close releases the underlying connection.
type Source interface {
	Frames() <-chan transport.FrameChunk
	Close()
}

// Decoder turns one frame into a value. Returning ErrSkip drops the frame;
// any other error ends the stream.
type Decoder[T any] func(transport.Frame) (T, error)

// Pump decodes frames from src in arrival order and delivers them on the returned channel.
// The channel is closed after the source ends or after the first error, and src is
// closed in every case. Cancelling ctx stops delivery.
func Pump[T any](ctx context.Context, src Source, decode Decoder[T]) <-chan Chunk[T] {
	out := make(chan Chunk[T])
	go func() {
		defer close(out)
		defer src.Close()

		send := func(c Chunk[T]) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		frames := src.Frames()
		for {
			var fc transport.FrameChunk
			var ok bool
			select {
			case fc, ok = <-frames:
			case <-ctx.Done():
				return
			}
			if !ok {
				return
			}
			if fc.Err != nil {
				send(Chunk[T]{Err: fc.Err})
				return
			}
			value, err := decode(fc.Frame)
			if errors.Is(err, ErrSkip) {
				continue
			}
			if err != nil {
				send(Chunk[T]{Err: err})
				return
			}
			if !send(Chunk[T]{Value: value}) {
				return
			}
		}
	}()
	return out
}

// ClassifyFrame classifies f, logging and returning ErrSkip for unknown event names.
// A frame without an event name but carrying the [DONE] sentinel is treated as done.
func ClassifyFrame(f transport.Frame) (EventType, error) {
	if f.Event == "" && f.Data == DoneSentinel {
		return EventDone, nil
	}
	t, ok := Classify(f.Event)
	if !ok {
		log.Warnf("stream: dropping frame with unrecognized event %q", f.Event)
		return EventUnknown, ErrSkip
	}
	return t, nil
}

// Collect drains ch and returns all values, or the first error.
func Collect[T any](ch <-chan Chunk[T]) ([]T, error) {
	var values []T
	for c := range ch {
		if c.Err != nil {
			for range ch {
			}
			return values, c.Err
		}
		values = append(values, c.Value)
	}
	return values, nil
}
