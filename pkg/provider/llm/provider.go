// Package llm defines the Provider interface for Large Language Model
// backends.
//
// The assistant uses an LLM in two places: as the conversational fallback
// for utterances no classification rule matches, and as the counterpart pair
// in the developer-delegate flow. Both are plain request/response
// completions, so the interface is deliberately small.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Message is one entry of a conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the backend. Counts
// are in the model's native token unit.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the model needs to produce a
// response. At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message is
	// typically from the "user" role and drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation history.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero means the
	// provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means the provider default.
	MaxTokens int
}

// CompletionResponse is the model's reply to a CompletionRequest.
type CompletionResponse struct {
	// Content is the full response text.
	Content string

	// Usage is the token accounting for this exchange, when the backend
	// reports it.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends the request and blocks until the full response
	// arrives. Returns an error if the request fails or ctx is cancelled
	// first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
