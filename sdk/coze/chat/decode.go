package chat

import (
	"encoding/json"
	"fmt"

	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/client"
	"github.com/router-for-me/CozeSDK/sdk/coze/stream"
)

// DecodeEvent turns one chat stream frame into a StreamEvent. Unknown events yield
// stream.ErrSkip; error frames and malformed data are fatal.
func DecodeEvent(f transport.Frame) (*StreamEvent, error) {
	t, err := stream.ClassifyFrame(f)
	if err != nil {
		return nil, err
	}
	switch {
	case t == stream.EventDone:
		return &StreamEvent{Event: t}, nil
	case t == stream.EventError:
		return nil, client.StreamError(f.Data)
	case t.IsMessageEvent():
		var msg Message
		if err = json.Unmarshal([]byte(f.Data), &msg); err != nil {
			return nil, apierr.JSONParse([]byte(f.Data), err)
		}
		return &StreamEvent{Event: t, Message: &msg}, nil
	case t.IsChatEvent():
		var c Chat
		if err = json.Unmarshal([]byte(f.Data), &c); err != nil {
			return nil, apierr.JSONParse([]byte(f.Data), err)
		}
		return &StreamEvent{Event: t, Chat: &c}, nil
	default:
		return nil, apierr.JSONParse([]byte(f.Data), fmt.Errorf("unhandled chat event %q", f.Event))
	}
}
