package chat

import "github.com/router-for-me/CozeSDK/sdk/coze/stream"

// Status is the lifecycle state of a chat turn.
type Status string

const (
	StatusCreated        Status = "created"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusRequiresAction Status = "requires_action"
	StatusCanceled       Status = "canceled"
)

// IsTerminal reports whether no further transition happens without caller action.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRequiresAction, StatusCanceled:
		return true
	}
	return false
}

// Chat is a snapshot of one chat turn.
type Chat struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	BotID          string            `json:"bot_id"`
	Status         Status            `json:"status"`
	CreatedAt      int64             `json:"created_at,omitempty"`
	CompletedAt    int64             `json:"completed_at,omitempty"`
	FailedAt       int64             `json:"failed_at,omitempty"`
	LastError      *LastError        `json:"last_error,omitempty"`
	RequiredAction *RequiredAction   `json:"required_action,omitempty"`
	Usage          *Usage            `json:"usage,omitempty"`
	MetaData       map[string]string `json:"meta_data,omitempty"`
}

// LastError describes why a chat failed.
type LastError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// RequiredAction is set when Status is requires_action.
type RequiredAction struct {
	Type              string             `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs lists the tool calls awaiting results.
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is one function invocation requested by the bot.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction names the function and carries its JSON arguments.
type ToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage reports token consumption of a chat.
type Usage struct {
	TokenCount  int `json:"token_count"`
	OutputCount int `json:"output_count"`
	InputCount  int `json:"input_count"`
}

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a chat message, either complete or a streamed delta.
type Message struct {
	ID               string            `json:"id,omitempty"`
	ConversationID   string            `json:"conversation_id,omitempty"`
	BotID            string            `json:"bot_id,omitempty"`
	ChatID           string            `json:"chat_id,omitempty"`
	Role             Role              `json:"role"`
	Type             string            `json:"type,omitempty"`
	Content          string            `json:"content"`
	ContentType      string            `json:"content_type,omitempty"`
	ReasoningContent string            `json:"reasoning_content,omitempty"`
	MetaData         map[string]string `json:"meta_data,omitempty"`
	CreatedAt        int64             `json:"created_at,omitempty"`
	UpdatedAt        int64             `json:"updated_at,omitempty"`
}

// UserText builds a plain text user message.
func UserText(content string) Message {
	return Message{Role: RoleUser, Type: "question", Content: content, ContentType: "text"}
}

// CreateRequest starts a chat turn. ConversationID travels as a query parameter.
type CreateRequest struct {
	BotID              string            `json:"bot_id"`
	ConversationID     string            `json:"-"`
	UserID             string            `json:"user_id"`
	AdditionalMessages []Message         `json:"additional_messages"`
	CustomVariables    map[string]string `json:"custom_variables,omitempty"`
	AutoSaveHistory    *bool             `json:"auto_save_history,omitempty"`
	MetaData           map[string]string `json:"meta_data,omitempty"`
	ExtraParams        map[string]string `json:"extra_params,omitempty"`
}

// ToolOutput answers one ToolCall.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// SubmitToolOutputsRequest resumes a chat waiting in requires_action.
type SubmitToolOutputsRequest struct {
	ConversationID string       `json:"-"`
	ChatID         string       `json:"-"`
	ToolOutputs    []ToolOutput `json:"tool_outputs"`
}

// PollResult is the outcome of CreateAndPoll.
type PollResult struct {
	Chat     *Chat
	Messages []Message
}

// StreamEvent is one decoded chat stream frame. Exactly one of Chat or Message is set
// for snapshot events; both are nil for Done.
type StreamEvent struct {
	Event   stream.EventType
	Chat    *Chat
	Message *Message
	LogID   string
}
