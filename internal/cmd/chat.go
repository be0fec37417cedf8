// Package cmd implements the actions behind the coze command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/router-for-me/CozeSDK/sdk/coze"
	"github.com/router-for-me/CozeSDK/sdk/coze/chat"
	"github.com/router-for-me/CozeSDK/sdk/coze/stream"
	log "github.com/sirupsen/logrus"
)

// ChatOptions selects the bot and the user message of one chat turn.
type ChatOptions struct {
	BotID          string
	ConversationID string
	UserID         string
	Message        string
}

func (o ChatOptions) request() chat.CreateRequest {
	return chat.CreateRequest{
		BotID:              strings.TrimSpace(o.BotID),
		ConversationID:     strings.TrimSpace(o.ConversationID),
		UserID:             strings.TrimSpace(o.UserID),
		AdditionalMessages: []chat.Message{chat.UserText(o.Message)},
	}
}

// DoChat runs a chat turn to completion and prints the assistant answers.
func DoChat(ctx context.Context, cz *coze.Client, opts ChatOptions, out io.Writer) error {
	result, err := cz.Chat.CreateAndPoll(ctx, opts.request())
	if err != nil {
		return err
	}
	log.Debugf("chat %s in conversation %s finished as %s", result.Chat.ID, result.Chat.ConversationID, result.Chat.Status)

	switch result.Chat.Status {
	case chat.StatusFailed:
		if e := result.Chat.LastError; e != nil {
			return fmt.Errorf("chat failed: %d %s", e.Code, e.Msg)
		}
		return fmt.Errorf("chat failed")
	case chat.StatusRequiresAction:
		fmt.Fprintf(out, "chat %s requires tool outputs:\n", result.Chat.ID)
		if ra := result.Chat.RequiredAction; ra != nil && ra.SubmitToolOutputs != nil {
			for _, call := range ra.SubmitToolOutputs.ToolCalls {
				fmt.Fprintf(out, "  %s %s(%s)\n", call.ID, call.Function.Name, call.Function.Arguments)
			}
		}
		return nil
	}

	for _, msg := range result.Messages {
		if msg.Role == chat.RoleAssistant && msg.Type == "answer" {
			fmt.Fprintln(out, msg.Content)
		}
	}
	if u := result.Chat.Usage; u != nil {
		log.Infof("tokens: %d (input %d, output %d)", u.TokenCount, u.InputCount, u.OutputCount)
	}
	return nil
}

// DoStream streams a chat turn and prints message deltas as they arrive.
func DoStream(ctx context.Context, cz *coze.Client, opts ChatOptions, out io.Writer) error {
	ch, err := cz.Chat.Stream(ctx, opts.request())
	if err != nil {
		return err
	}
	for chunk := range ch {
		if chunk.Err != nil {
			return chunk.Err
		}
		ev := chunk.Value
		switch ev.Event {
		case stream.EventMessageDelta:
			fmt.Fprint(out, ev.Message.Content)
		case stream.EventChatFailed:
			if ev.Chat != nil && ev.Chat.LastError != nil {
				return fmt.Errorf("chat failed: %d %s", ev.Chat.LastError.Code, ev.Chat.LastError.Msg)
			}
		case stream.EventDone:
			fmt.Fprintln(out)
		}
	}
	return nil
}
