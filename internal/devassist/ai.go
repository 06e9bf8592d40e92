package devassist

import (
	"context"
	"fmt"

	"github.com/pmeredith/vessa/pkg/provider/llm"
)

const aiDelegateSystemPrompt = "You are the development-environment arm of a " +
	"voice assistant. The user asked for help setting up or building a " +
	"software project. Describe, step by step, the shell commands you would " +
	"run to fulfil the request. Be concise."

// AIDelegate is a [Delegate] that plans the request with the conversational
// AI provider instead of executing it. Used when no MCP server is configured
// so dev-build requests still produce something useful in the logs.
type AIDelegate struct {
	provider llm.Provider
}

var _ Delegate = (*AIDelegate)(nil)

// NewAIDelegate wraps provider as a planning-only delegate.
func NewAIDelegate(provider llm.Provider) *AIDelegate {
	return &AIDelegate{provider: provider}
}

// Handle asks the AI provider for a build plan and returns it.
func (d *AIDelegate) Handle(ctx context.Context, request string) (string, error) {
	resp, err := d.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: aiDelegateSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: request},
		},
	})
	if err != nil {
		return "", fmt.Errorf("devassist: plan request failed: %w", err)
	}
	return resp.Content, nil
}
