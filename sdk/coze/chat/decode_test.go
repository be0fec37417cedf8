package chat

import (
	"errors"
	"testing"

	"github.com/router-for-me/CozeSDK/internal/runtime/transport"
	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/stream"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent(transport.Frame{Event: "conversation.chat.requires_action", Data: `{"id":"C1","status":"requires_action","required_action":{"type":"submit_tool_outputs","submit_tool_outputs":{"tool_calls":[{"id":"call-1","type":"function","function":{"name":"weather","arguments":"{}"}}]}}}`})
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Event != stream.EventChatRequiresAction || ev.Chat == nil || ev.Chat.RequiredAction == nil {
		t.Fatalf("event = %+v", ev)
	}
	if calls := ev.Chat.RequiredAction.SubmitToolOutputs.ToolCalls; len(calls) != 1 || calls[0].Function.Name != "weather" {
		t.Fatalf("tool calls = %+v", calls)
	}

	ev, err = DecodeEvent(transport.Frame{Event: "conversation.audio.delta", Data: `{"role":"assistant","content":"AAAA","content_type":"audio"}`})
	if err != nil || ev.Message == nil || ev.Message.ContentType != "audio" {
		t.Fatalf("audio delta = %+v, %v", ev, err)
	}

	ev, err = DecodeEvent(transport.Frame{Event: "done", Data: "[DONE]"})
	if err != nil || ev.Event != stream.EventDone || ev.Chat != nil || ev.Message != nil {
		t.Fatalf("done = %+v, %v", ev, err)
	}
	ev, err = DecodeEvent(transport.Frame{Data: "[DONE]"})
	if err != nil || ev.Event != stream.EventDone {
		t.Fatalf("bare [DONE] = %+v, %v", ev, err)
	}
}

func TestDecodeEvent_Failures(t *testing.T) {
	if _, err := DecodeEvent(transport.Frame{Event: "conversation.brand.new", Data: "{}"}); !errors.Is(err, stream.ErrSkip) {
		t.Fatalf("unknown event err = %v, want ErrSkip", err)
	}

	_, err := DecodeEvent(transport.Frame{Event: "conversation.message.delta", Data: `{"content":`})
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != apierr.KindJSONParse || apiErr.Raw != `{"content":` {
		t.Fatalf("malformed err = %#v", err)
	}

	if _, err = DecodeEvent(transport.Frame{Event: "Message", Data: `{}`}); !apierr.IsKind(err, apierr.KindJSONParse) {
		t.Fatalf("workflow event on chat decoder err = %v, want json parse", err)
	}

	if _, err = DecodeEvent(transport.Frame{Event: "error", Data: `{"code":4100,"msg":"token expired"}`}); !apierr.IsKind(err, apierr.KindAuthentication) {
		t.Fatalf("error frame err = %v, want authentication", err)
	}
}
