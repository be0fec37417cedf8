// Package stream defines the closed set of Server-Sent-Event types emitted by the Coze API
// and folds raw transport frames into typed, ordered channels.
package stream

import "strings"

// EventType discriminates decoded stream payloads.
type EventType int

const (
	EventUnknown EventType = iota
	EventChatCreated
	EventChatInProgress
	EventChatCompleted
	EventChatFailed
	EventChatRequiresAction
	EventMessageDelta
	EventMessageCompleted
	EventAudioDelta
	EventDone
	EventError
	EventWorkflowMessage
	EventWorkflowError
	EventWorkflowDone
	EventInterrupt
)

// DoneSentinel is the literal data payload some streams send on completion.
const DoneSentinel = "[DONE]"

var wireNames = map[EventType]string{
	EventChatCreated:        "conversation.chat.created",
	EventChatInProgress:     "conversation.chat.in_progress",
	EventChatCompleted:      "conversation.chat.completed",
	EventChatFailed:         "conversation.chat.failed",
	EventChatRequiresAction: "conversation.chat.requires_action",
	EventMessageDelta:       "conversation.message.delta",
	EventMessageCompleted:   "conversation.message.completed",
	EventAudioDelta:         "conversation.audio.delta",
	EventDone:               "done",
	EventError:              "error",
	EventWorkflowMessage:    "Message",
	EventWorkflowError:      "Error",
	EventWorkflowDone:       "Done",
	EventInterrupt:          "Interrupt",
}

var byWire = func() map[string]EventType {
	m := make(map[string]EventType, len(wireNames))
	for t, name := range wireNames {
		m[name] = t
	}
	return m
}()

// String returns the wire value of t.
func (t EventType) String() string {
	if name, ok := wireNames[t]; ok {
		return name
	}
	return "unknown"
}

// Classify looks up a wire event name. Matching is exact because chat and workflow
// events differ only by case ("done" vs "Done").
func Classify(wire string) (EventType, bool) {
	t, ok := byWire[strings.TrimSpace(wire)]
	return t, ok
}

// IsChatEvent reports whether t carries a chat-turn snapshot.
func (t EventType) IsChatEvent() bool {
	switch t {
	case EventChatCreated, EventChatInProgress, EventChatCompleted, EventChatFailed, EventChatRequiresAction:
		return true
	}
	return false
}

// IsMessageEvent reports whether t carries a message snapshot.
func (t EventType) IsMessageEvent() bool {
	switch t {
	case EventMessageDelta, EventMessageCompleted, EventAudioDelta:
		return true
	}
	return false
}

// IsWorkflowEvent reports whether t belongs to the workflow family.
func (t EventType) IsWorkflowEvent() bool {
	switch t {
	case EventWorkflowMessage, EventWorkflowError, EventWorkflowDone, EventInterrupt:
		return true
	}
	return false
}

// IsTerminal reports whether the stream ends after a frame of type t is delivered.
func (t EventType) IsTerminal() bool {
	return t == EventDone || t == EventWorkflowDone
}
