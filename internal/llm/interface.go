// Package llm is the chat-completion abstraction behind the screen digest.
// Providers never influence scores or rankings.
package llm

import "context"

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxTokens applies when a request leaves MaxTokens unset
const DefaultMaxTokens = 1024

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// UserPrompt builds a single-turn request
func UserPrompt(system, prompt string, maxTokens int) ChatRequest {
	return ChatRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens:    maxTokens,
	}
}
