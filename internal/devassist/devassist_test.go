package devassist_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pmeredith/vessa/internal/devassist"
	"github.com/pmeredith/vessa/pkg/provider/llm"
	llmmock "github.com/pmeredith/vessa/pkg/provider/llm/mock"
)

func TestTransport_IsValid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		transport devassist.Transport
		want      bool
	}{
		{devassist.TransportStdio, true},
		{devassist.TransportStreamableHTTP, true},
		{"grpc", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.transport.IsValid(); got != tt.want {
			t.Errorf("Transport(%q).IsValid() = %v, want %v", tt.transport, got, tt.want)
		}
	}
}

func TestConnect_RejectsBadConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     devassist.ServerConfig
		wantMsg string
	}{
		{
			name:    "missing name",
			cfg:     devassist.ServerConfig{Transport: devassist.TransportStdio, Command: "/bin/true", Tool: "t"},
			wantMsg: "non-empty name",
		},
		{
			name:    "bad transport",
			cfg:     devassist.ServerConfig{Name: "x", Transport: "grpc", Tool: "t"},
			wantMsg: "unknown transport",
		},
		{
			name:    "missing tool",
			cfg:     devassist.ServerConfig{Name: "x", Transport: devassist.TransportStdio, Command: "/bin/true"},
			wantMsg: "tool name",
		},
		{
			name:    "stdio without command",
			cfg:     devassist.ServerConfig{Name: "x", Transport: devassist.TransportStdio, Tool: "t"},
			wantMsg: "Command",
		},
		{
			name:    "http without url",
			cfg:     devassist.ServerConfig{Name: "x", Transport: devassist.TransportStreamableHTTP, Tool: "t"},
			wantMsg: "URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := devassist.Connect(ctx, tt.cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error should mention %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestAIDelegate_Handle(t *testing.T) {
	t.Parallel()
	provider := &llmmock.Provider{Response: &llm.CompletionResponse{Content: "run make build"}}
	d := devassist.NewAIDelegate(provider)

	got, err := d.Handle(context.Background(), "set up the build")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "run make build" {
		t.Errorf("Handle: got %q", got)
	}
	req := provider.LastRequest()
	if len(req.Messages) != 1 || req.Messages[0].Content != "set up the build" {
		t.Errorf("provider should receive the raw request, got %+v", req.Messages)
	}
	if req.SystemPrompt == "" {
		t.Error("delegate should set a system prompt")
	}
}

func TestAIDelegate_PropagatesError(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("backend down")
	d := devassist.NewAIDelegate(&llmmock.Provider{Err: wantErr})

	_, err := d.Handle(context.Background(), "build it")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}
