// Package devassist delegates development-environment requests to an external
// tool server speaking the Model Context Protocol.
//
// When the assistant hears a request like "open my workspace and build the
// project", the dispatch pipeline hands the raw utterance to a [Delegate] and
// answers the user immediately; the delegate works in the background.
package devassist

import (
	"context"
)

// Transport selects the connection mechanism for the dev-assistant MCP server.
type Transport string

const (
	// TransportStdio spawns a subprocess and communicates over stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP communicates via the MCP Streamable HTTP protocol.
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// ServerConfig describes how to reach the dev-assistant MCP server.
type ServerConfig struct {
	// Name is a human-readable identifier used in logs.
	Name string

	// Transport specifies the connection mechanism.
	Transport Transport

	// Command is the executable (with optional arguments) launched when
	// Transport is "stdio".
	Command string

	// URL is the endpoint address used when Transport is "streamable-http".
	URL string

	// Tool is the MCP tool invoked for each request.
	Tool string

	// Env holds additional environment variables injected into the subprocess
	// when Transport is "stdio". May be nil.
	Env map[string]string
}

// Delegate handles a development-environment request end to end.
// Implementations may take arbitrarily long; callers run them in the
// background and do not surface the result to the user.
type Delegate interface {
	// Handle processes the raw utterance and returns a short summary of what
	// was done, for logging.
	Handle(ctx context.Context, request string) (string, error)
}
