package mcpserver

import (
	"context"
	"errors"
	"fmt"

	baysetserrors "github.com/baysets/baysets/internal/errors"
)

// Custom MCP error codes for baysets, following the JSON-RPC reserved range
// convention the SDK itself uses for standard codes.
const (
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603

	// ErrCodeTimeout indicates the request's context was canceled or
	// deadline-exceeded mid-query.
	ErrCodeTimeout = -32001
)

// ToolError represents an MCP protocol error with code and message.
type ToolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// MapError converts an internal error to a ToolError for the MCP transport.
func MapError(err error) *ToolError {
	if err == nil {
		return nil
	}

	var be *baysetserrors.BaysetError
	if errors.As(err, &be) {
		return mapBaysetError(be)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &ToolError{Code: ErrCodeTimeout, Message: "query was canceled or timed out"}
	default:
		return &ToolError{Code: ErrCodeInternalError, Message: err.Error()}
	}
}

func mapBaysetError(be *baysetserrors.BaysetError) *ToolError {
	message := be.Message
	if be.Suggestion != "" {
		message = fmt.Sprintf("%s %s", message, be.Suggestion)
	}

	switch be.Category {
	case baysetserrors.CategoryValidation:
		return &ToolError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &ToolError{Code: ErrCodeInternalError, Message: message}
	}
}

// NewInvalidParamsError creates an error for invalid tool parameters.
func NewInvalidParamsError(msg string) *ToolError {
	return &ToolError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for an unknown tool name.
func NewMethodNotFoundError(name string) *ToolError {
	return &ToolError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("tool %q not found", name)}
}
