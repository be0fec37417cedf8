// Package conversation manages conversations and their messages.
package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/router-for-me/CozeSDK/sdk/coze/apierr"
	"github.com/router-for-me/CozeSDK/sdk/coze/chat"
	"github.com/router-for-me/CozeSDK/sdk/coze/client"
)

const (
	pathCreate       = "/v1/conversation/create"
	pathRetrieve     = "/v1/conversation/retrieve"
	pathList         = "/v1/conversations"
	pathMessageList  = "/v1/conversation/message/list"
	maxListPageSize  = 50
	defaultPageSize  = 20
	defaultPageIndex = 1
)

// Conversation is a thread of chat turns and messages.
type Conversation struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	CreatedAt     int64             `json:"created_at"`
	UpdatedAt     int64             `json:"updated_at,omitempty"`
	LastSectionID string            `json:"last_section_id,omitempty"`
	MetaData      map[string]string `json:"meta_data,omitempty"`
}

// CreateRequest seeds a new conversation, optionally with messages.
type CreateRequest struct {
	BotID    string            `json:"bot_id,omitempty"`
	Messages []chat.Message    `json:"messages,omitempty"`
	MetaData map[string]string `json:"meta_data,omitempty"`
}

// ListRequest selects a page of a bot's conversations.
type ListRequest struct {
	BotID    string
	PageNum  int
	PageSize int
}

// ListResult is one page of conversations.
type ListResult struct {
	Conversations []Conversation `json:"conversations"`
	HasMore       bool           `json:"has_more"`
}

// MessageListRequest pages through the messages of a conversation.
// BeforeID and AfterID are mutually exclusive cursors.
type MessageListRequest struct {
	ConversationID string `json:"-"`
	Order          string `json:"order,omitempty"`
	ChatID         string `json:"chat_id,omitempty"`
	BeforeID       string `json:"before_id,omitempty"`
	AfterID        string `json:"after_id,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

// MessageListResult is one page of messages with its cursors.
type MessageListResult struct {
	Messages []chat.Message `json:"data"`
	FirstID  string         `json:"first_id"`
	LastID   string         `json:"last_id"`
	HasMore  bool           `json:"has_more"`
}

// Section is the context boundary created by Clear.
type Section struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
}

// Service wraps the conversation endpoints.
type Service struct {
	client *client.Client
}

// NewService returns a conversation service bound to c.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// Create starts a conversation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Conversation, error) {
	return client.Data[*Conversation](client.Post[*Conversation](ctx, s.client, pathCreate, req, client.RequestOptions{}))
}

// Retrieve fetches one conversation by id.
func (s *Service) Retrieve(ctx context.Context, conversationID string) (*Conversation, error) {
	if err := requireID(conversationID); err != nil {
		return nil, err
	}
	opts := client.RequestOptions{Params: map[string]string{"conversation_id": conversationID}}
	return client.Data[*Conversation](client.Get[*Conversation](ctx, s.client, pathRetrieve, opts))
}

// List pages through the conversations of a bot. PageSize must be within 1..50.
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	if strings.TrimSpace(req.BotID) == "" {
		return nil, apierr.Validation("bot id is required")
	}
	if req.PageSize == 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize < 1 || req.PageSize > maxListPageSize {
		return nil, apierr.Validation("page size must be between 1 and %d, got %d", maxListPageSize, req.PageSize)
	}
	if req.PageNum <= 0 {
		req.PageNum = defaultPageIndex
	}
	opts := client.RequestOptions{Params: map[string]string{
		"bot_id":    req.BotID,
		"page_num":  strconv.Itoa(req.PageNum),
		"page_size": strconv.Itoa(req.PageSize),
	}}
	return client.Data[*ListResult](client.Get[*ListResult](ctx, s.client, pathList, opts))
}

// Update renames a conversation.
func (s *Service) Update(ctx context.Context, conversationID, name string) (*Conversation, error) {
	if err := requireID(conversationID); err != nil {
		return nil, err
	}
	payload := map[string]string{"name": name}
	return client.Data[*Conversation](client.Put[*Conversation](ctx, s.client, itemPath(conversationID, ""), payload, client.RequestOptions{}))
}

// Delete removes a conversation and its messages.
func (s *Service) Delete(ctx context.Context, conversationID string) error {
	if err := requireID(conversationID); err != nil {
		return err
	}
	_, err := client.Delete[any](ctx, s.client, itemPath(conversationID, ""), nil, client.RequestOptions{})
	return err
}

// Clear starts a new context section, dropping prior turns from the model context.
func (s *Service) Clear(ctx context.Context, conversationID string) (*Section, error) {
	if err := requireID(conversationID); err != nil {
		return nil, err
	}
	return client.Data[*Section](client.Post[*Section](ctx, s.client, itemPath(conversationID, "/clear"), nil, client.RequestOptions{}))
}

// ListMessages returns one page of messages. The reply carries paging fields next to
// data, so it is decoded from the raw envelope.
func (s *Service) ListMessages(ctx context.Context, req MessageListRequest) (*MessageListResult, error) {
	if err := requireID(req.ConversationID); err != nil {
		return nil, err
	}
	if req.BeforeID != "" && req.AfterID != "" {
		return nil, apierr.Validation("before id and after id are mutually exclusive")
	}
	if req.Limit < 0 || req.Limit > maxListPageSize {
		return nil, apierr.Validation("limit must be between 1 and %d, got %d", maxListPageSize, req.Limit)
	}
	opts := client.RequestOptions{Params: map[string]string{"conversation_id": req.ConversationID}}
	body, _, err := client.Do(ctx, s.client, http.MethodPost, pathMessageList, req, opts)
	if err != nil {
		return nil, err
	}
	var out MessageListResult
	if err = json.Unmarshal(body, &out); err != nil {
		return nil, apierr.JSONParse(body, err)
	}
	return &out, nil
}

func requireID(conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return apierr.Validation("conversation id is required")
	}
	return nil
}

func itemPath(conversationID, suffix string) string {
	return pathList + "/" + url.PathEscape(conversationID) + suffix
}
