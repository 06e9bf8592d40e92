package devassist

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client is a [Delegate] backed by an external MCP tool server.
//
// The zero value is NOT usable; create instances with [Connect].
type Client struct {
	name string
	tool string

	mu      sync.Mutex
	session *mcpsdk.ClientSession
}

var _ Delegate = (*Client)(nil)

// Connect establishes a session with the MCP server described by cfg and
// verifies that the configured tool is offered. The returned Client is safe
// for concurrent use.
func Connect(ctx context.Context, cfg ServerConfig) (*Client, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("devassist: server config must have a non-empty name")
	}
	if !cfg.Transport.IsValid() {
		return nil, fmt.Errorf("devassist: unknown transport %q for server %q", cfg.Transport, cfg.Name)
	}
	if cfg.Tool == "" {
		return nil, fmt.Errorf("devassist: server %q requires a tool name", cfg.Name)
	}

	var transport mcpsdk.Transport

	switch cfg.Transport {
	case TransportStdio:
		executable, args := splitCommand(cfg.Command)
		if executable == "" {
			return nil, fmt.Errorf("devassist: stdio server %q requires a non-empty Command", cfg.Name)
		}
		cmd := exec.CommandContext(ctx, executable, args...)
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}

	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("devassist: streamable-http server %q requires a non-empty URL", cfg.Name)
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
	}

	client := mcpsdk.NewClient(
		&mcpsdk.Implementation{Name: "vessa-devassist", Version: "1.0.0"},
		nil,
	)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("devassist: failed to connect to server %q: %w", cfg.Name, err)
	}

	found := false
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("devassist: failed to list tools for server %q: %w", cfg.Name, err)
		}
		if tool.Name == cfg.Tool {
			found = true
			break
		}
	}
	if !found {
		_ = session.Close()
		return nil, fmt.Errorf("devassist: server %q does not offer tool %q", cfg.Name, cfg.Tool)
	}

	return &Client{name: cfg.Name, tool: cfg.Tool, session: session}, nil
}

// Handle forwards the raw utterance to the configured MCP tool and returns
// the concatenated text content of the result.
func (c *Client) Handle(ctx context.Context, request string) (string, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return "", fmt.Errorf("devassist: client %q is closed", c.name)
	}

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      c.tool,
		Arguments: map[string]any{"request": request},
	})
	if err != nil {
		return "", fmt.Errorf("devassist: call to tool %q failed: %w", c.tool, err)
	}

	var sb strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("devassist: tool %q reported an error: %s", c.tool, sb.String())
	}
	return sb.String(), nil
}

// Close terminates the MCP session. Handle calls after Close return an error.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func splitCommand(command string) (executable string, args []string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
