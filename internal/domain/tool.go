package domain

import (
	"context"
	"errors"
)

// ErrAsyncNotSupported is returned by tools that only run synchronously.
var ErrAsyncNotSupported = errors.New("asynchronous execution is not supported")

// Tool is the interface for agent capabilities (web search, encyclopedia, crypto lookup, etc).
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// AsyncTool is implemented by tools that expose an asynchronous entry point.
// The returned channel yields exactly one result.
type AsyncTool interface {
	Tool
	ExecuteAsync(ctx context.Context, args map[string]any) (<-chan ToolResult, error)
}

// ToolResult is the outcome of an asynchronous tool call.
type ToolResult struct {
	Output string
	Err    error
}
