package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ErrTooManyEvents is returned when a stream delivers more frames than allowed.
var ErrTooManyEvents = errors.New("stream exceeded maximum event limit")

// DefaultMaxEvents is the frame cap applied when SSEOptions.MaxEvents is not positive.
const DefaultMaxEvents = 500

const streamScannerBuffer = 8 << 20

// Frame is one event/data unit of a Server-Sent-Events stream.
type Frame struct {
	Event string
	Data  string
	ID    string
}

// FrameChunk carries either a frame or the terminal error of a stream.
type FrameChunk struct {
	Frame Frame
	Err   error
}

// Verdict tells the reader what to do with a frame.
type Verdict int

const (
	// Continue emits the frame and keeps reading.
	Continue Verdict = iota
	// StopAfter emits the frame and ends the stream.
	StopAfter
	// StopBefore ends the stream without emitting the frame.
	StopBefore
)

// SSEOptions tunes ReadFrames.
type SSEOptions struct {
	// MaxEvents caps the frames read from the stream.
	MaxEvents int
	// Inspect decides whether a frame terminates the stream. A non-nil error
	// is delivered as the terminal chunk. Nil means every frame continues.
	Inspect func(Frame) (Verdict, error)
}

// ReadFrames parses body as an SSE stream and delivers frames in arrival order.
// The channel is closed when the stream ends; body is always closed by the reader.
// Cancelling ctx stops delivery and releases the connection.
func ReadFrames(ctx context.Context, body io.ReadCloser, opts SSEOptions) <-chan FrameChunk {
	maxEvents := opts.MaxEvents
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	out := make(chan FrameChunk)

	go func() {
		defer close(out)
		defer func() {
			if errClose := body.Close(); errClose != nil {
				log.Errorf("sse: close response body error: %v", errClose)
			}
		}()

		send := func(chunk FrameChunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		count := 0
		var current Frame
		var dataLines []string
		pending := false

		// dispatch returns false when the stream must end.
		dispatch := func() bool {
			if !pending {
				return true
			}
			frame := current
			frame.Data = strings.Join(dataLines, "\n")
			current = Frame{}
			dataLines = dataLines[:0]
			pending = false

			count++
			if count > maxEvents {
				log.Warnf("sse: stream exceeded %d events, closing", maxEvents)
				send(FrameChunk{Err: ErrTooManyEvents})
				return false
			}

			verdict := Continue
			var errVerdict error
			if opts.Inspect != nil {
				verdict, errVerdict = opts.Inspect(frame)
			}
			switch verdict {
			case StopBefore:
				if errVerdict != nil {
					send(FrameChunk{Err: errVerdict})
				}
				return false
			case StopAfter:
				send(FrameChunk{Frame: frame})
				if errVerdict != nil {
					send(FrameChunk{Err: errVerdict})
				}
				return false
			default:
				if !send(FrameChunk{Frame: frame}) {
					return false
				}
				if errVerdict != nil {
					send(FrameChunk{Err: errVerdict})
					return false
				}
				return true
			}
		}

		scanner := bufio.NewScanner(body)
		scanner.Buffer(nil, streamScannerBuffer)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if line == "" {
				if !dispatch() {
					return
				}
				continue
			}
			if strings.HasPrefix(line, ":") {
				continue
			}
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				current.Event = strings.TrimSpace(value)
				pending = true
			case "data":
				dataLines = append(dataLines, value)
				pending = true
			case "id":
				current.ID = value
				pending = true
			default:
				// retry and unknown fields carry nothing we use
			}
		}
		if errScan := scanner.Err(); errScan != nil {
			if ctx.Err() != nil {
				return
			}
			log.Debugf("sse: read error: %v", errScan)
			send(FrameChunk{Err: errScan})
			return
		}
		dispatch()
	}()

	return out
}
