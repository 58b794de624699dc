package client

import (
	"context"
	"net/http"
	"strings"
)

// ChatReply is the assistant's answer to a chat message
type ChatReply struct {
	Role      string           `json:"role" validate:"required"`
	Content   string           `json:"content"`
	ToolCalls []map[string]any `json:"tool_calls,omitempty"`
}

type chatInput struct {
	Message string `json:"message"`
}

// SendChatMessage sends one message to the health assistant. The
// conversation history is kept server-side.
func (c *Client) SendChatMessage(ctx context.Context, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &ValidationError{Field: "message", Message: "is required"}
	}

	var reply ChatReply
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/chat/message",
		Body:   chatInput{Message: message},
	}, &reply)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// ClearChatHistory drops the server-side conversation
func (c *Client) ClearChatHistory(ctx context.Context) (*MessageResponse, error) {
	var resp MessageResponse
	err := c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   "/api/v1/chat/history",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
