// Package mcp exposes the daemon's commands as Model Context Protocol tools
// over stdio. Every tool forwards to the running daemon.
package mcp

import (
	"context"
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	ServerName    = "womp"
	ServerVersion = "0.1.0"
)

// Caller sends one command to the daemon and decodes its result into out.
// *ipc.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, command string, args any, out any) error
}

// Server is the MCP server for display profile management.
type Server struct {
	mcpServer *mcpsdk.Server
	caller    Caller
	logger    *zap.Logger
}

// NewServer creates a server that forwards tool calls to caller.
func NewServer(caller Caller, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		caller: caller,
		logger: logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves on the stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves a single session on t. Used by tests with in-memory
// transports.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// forward builds a handler that sends command with the tool input as args
// and returns the daemon's result as JSON text.
func forward[In any](s *Server, command string) mcpsdk.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcpsdk.CallToolRequest, in In) (*mcpsdk.CallToolResult, any, error) {
		var out json.RawMessage
		if err := s.caller.Call(ctx, command, in, &out); err != nil {
			s.logger.Debug("mcp tool failed", zap.String("tool", command), zap.Error(err))
			return nil, nil, err
		}
		return textResult(out), nil, nil
	}
}

func textResult(data json.RawMessage) *mcpsdk.CallToolResult {
	text := string(data)
	if len(data) == 0 || text == "null" {
		text = "ok"
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}
