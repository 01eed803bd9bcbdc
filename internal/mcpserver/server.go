// Package mcpserver publishes a tool registry over the Model Context Protocol.
//
// Each registry descriptor becomes an MCP tool whose calls are forwarded to
// Registry.Invoke with the raw JSON arguments. Tool payloads are returned as a
// single text content block; error payloads are additionally flagged isError.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jeanpaul/cursor-memory-mcp/internal/tools"
)

// Options identify the server to clients.
type Options struct {
	Name         string
	Version      string
	Instructions string
	Logger       *slog.Logger
}

// New creates an MCP server exposing every tool in reg.
func New(reg *tools.Registry, opts Options) (*server.MCPServer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(_ context.Context, _ any, message *mcp.InitializeRequest, _ *mcp.InitializeResult) {
		logger.Info("client initialized",
			"client", message.Params.ClientInfo.Name,
			"client_version", message.Params.ClientInfo.Version,
			"protocol", message.Params.ProtocolVersion)
	})

	serverOpts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
	}
	if opts.Instructions != "" {
		serverOpts = append(serverOpts, server.WithInstructions(opts.Instructions))
	}
	s := server.NewMCPServer(opts.Name, opts.Version, serverOpts...)

	for _, d := range reg.List() {
		schemaJSON, err := json.Marshal(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encoding input schema for %s: %w", d.Name, err)
		}
		tool := mcp.NewToolWithRawSchema(d.Name, d.Description, schemaJSON)
		tool.Annotations = mcp.ToolAnnotation{
			Title:           d.Title,
			ReadOnlyHint:    mcp.ToBoolPtr(d.Annotations.ReadOnly),
			DestructiveHint: mcp.ToBoolPtr(d.Annotations.Destructive),
			IdempotentHint:  mcp.ToBoolPtr(d.Annotations.Idempotent),
			OpenWorldHint:   mcp.ToBoolPtr(d.Annotations.OpenWorld),
		}
		s.AddTool(tool, callHandler(reg, d.Name, logger))
		logger.Debug("registered tool", "tool", d.Name)
	}
	return s, nil
}

func callHandler(reg *tools.Registry, name string, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return nil, fmt.Errorf("encoding arguments for %s: %w", name, err)
		}

		res, err := reg.Invoke(ctx, name, string(args))
		if err != nil {
			logger.Error("tool call failed", "tool", name, "error", err)
			return nil, err
		}
		if res.IsError {
			return mcp.NewToolResultError(res.Text), nil
		}
		return mcp.NewToolResultText(res.Text), nil
	}
}

// Serve speaks newline-delimited JSON-RPC on in/out until in is exhausted or
// ctx is cancelled. Nothing but protocol messages is written to out.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	logger.Info("serving MCP on stdio")
	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() != nil {
		// Shutdown by signal, not a failure.
		err = nil
	}
	logger.Info("MCP server stopped")
	return err
}
