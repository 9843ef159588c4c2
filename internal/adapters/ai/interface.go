// Package ai provides the chat-completion provider used by LLM-backed
// decision functions.
package ai

import "context"

// ChatRequest is a single-turn completion request.
type ChatRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// ChatResponse carries the model's reply and token accounting.
type ChatResponse struct {
	Content      string
	InputTokens  int64
	OutputTokens int64
}

// ChatProvider sends a completion request to an LLM backend.
type ChatProvider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
