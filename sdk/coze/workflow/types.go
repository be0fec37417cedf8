package workflow

import (
	"github.com/router-for-me/CozeSDK/sdk/coze/chat"
	"github.com/router-for-me/CozeSDK/sdk/coze/stream"
)

// RunRequest starts a workflow.
type RunRequest struct {
	WorkflowID string            `json:"workflow_id"`
	Parameters map[string]any    `json:"parameters,omitempty"`
	BotID      string            `json:"bot_id,omitempty"`
	AppID      string            `json:"app_id,omitempty"`
	Ext        map[string]string `json:"ext,omitempty"`
	IsAsync    bool              `json:"is_async,omitempty"`
}

// RunResult is the reply of a non-streaming run. Data is the workflow output as
// the JSON text returned by the server.
type RunResult struct {
	ExecuteID string `json:"execute_id"`
	Data      string `json:"data"`
	DebugURL  string `json:"debug_url"`
	Usage     *Usage `json:"usage,omitempty"`
	LogID     string `json:"-"`
}

// Usage reports token consumption of a workflow run.
type Usage struct {
	InputCount  int `json:"input_count"`
	OutputCount int `json:"output_count"`
	TokenCount  int `json:"token_count"`
}

// InterruptType values accepted by Resume.
const (
	InterruptQuestion = 2
	InterruptInput    = 5
)

// ResumeRequest continues a workflow paused at an Interrupt event.
type ResumeRequest struct {
	WorkflowID    string `json:"workflow_id"`
	EventID       string `json:"event_id"`
	ResumeData    string `json:"resume_data"`
	InterruptType int    `json:"interrupt_type"`
}

// ChatRequest runs a chat-flow workflow.
type ChatRequest struct {
	WorkflowID         string            `json:"workflow_id"`
	AdditionalMessages []chat.Message    `json:"additional_messages"`
	Parameters         map[string]any    `json:"parameters,omitempty"`
	AppID              string            `json:"app_id,omitempty"`
	BotID              string            `json:"bot_id,omitempty"`
	ConversationID     string            `json:"conversation_id,omitempty"`
	Ext                map[string]string `json:"ext,omitempty"`
}

// Message is a node output.
type Message struct {
	Content      string            `json:"content"`
	NodeTitle    string            `json:"node_title"`
	NodeSeqID    string            `json:"node_seq_id"`
	NodeIsFinish bool              `json:"node_is_finish"`
	Ext          map[string]string `json:"ext,omitempty"`
	Usage        *Usage            `json:"usage,omitempty"`
}

// ErrorDetail is reported by the workflow itself and does not end the decoder.
type ErrorDetail struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// InterruptData identifies the interrupt to pass back to Resume.
type InterruptData struct {
	EventID string `json:"event_id"`
	Type    int    `json:"type"`
}

// Interrupt pauses the workflow until Resume is called with its event id.
type Interrupt struct {
	InterruptData InterruptData `json:"interrupt_data"`
	NodeTitle     string        `json:"node_title"`
}

// Done ends a workflow stream.
type Done struct {
	DebugURL string `json:"debug_url,omitempty"`
}

// Event is one decoded workflow stream frame; the field matching Event is set.
// Chat is used by the combined decoder for chat-family frames.
type Event struct {
	Event     stream.EventType
	ID        string
	Message   *Message
	Error     *ErrorDetail
	Interrupt *Interrupt
	Done      *Done
	Chat      *chat.StreamEvent
}
