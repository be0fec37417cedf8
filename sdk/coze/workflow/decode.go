package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/chat"
	"github.com/router-for-me/CozeSDK/sdk/coze/client"
	"github.com/router-for-me/CozeSDK/sdk/coze/stream"
)

// DecodeEvent decodes a workflow stream frame.
func DecodeEvent(f transport.Frame) (*Event, error) {
	t, err := stream.ClassifyFrame(f)
	if err != nil {
		return nil, err
	}
	ev := &Event{Event: t, ID: f.ID}
	switch t {
	case stream.EventWorkflowMessage:
		ev.Message = &Message{}
		err = unmarshal(f.Data, ev.Message)
	case stream.EventWorkflowError:
		ev.Error = &ErrorDetail{}
		err = unmarshal(f.Data, ev.Error)
	case stream.EventInterrupt:
		ev.Interrupt = &Interrupt{}
		err = unmarshal(f.Data, ev.Interrupt)
	case stream.EventWorkflowDone:
		ev.Done = &Done{}
		if data := strings.TrimSpace(f.Data); data != "" && data != stream.DoneSentinel {
			err = unmarshal(data, ev.Done)
		}
	case stream.EventDone:
		ev.Done = &Done{}
	case stream.EventError:
		return nil, client.StreamError(f.Data)
	default:
		return nil, apierr.JSONParse([]byte(f.Data), fmt.Errorf("unhandled workflow event %q", f.Event))
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// DecodeCombined decodes frames of a stream that interleaves workflow and chat events.
// The workflow shape is tried first and the chat shape is the fallback.
func DecodeCombined(f transport.Frame) (*Event, error) {
	ev, err := DecodeEvent(f)
	if err == nil || errors.Is(err, stream.ErrSkip) || f.Event == stream.EventError.String() {
		return ev, err
	}
	chatEv, errChat := chat.DecodeEvent(f)
	if errChat != nil {
		if t, ok := stream.Classify(f.Event); ok && (t.IsChatEvent() || t.IsMessageEvent()) {
			return nil, errChat
		}
		return nil, err
	}
	return &Event{Event: chatEv.Event, ID: f.ID, Chat: chatEv}, nil
}

func unmarshal(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return apierr.JSONParse([]byte(data), err)
	}
	return nil
}
