// Package tool implements the uniform capability adapters specialists invoke:
// catalog lookup, web search and sandboxed code execution. Adapters are leaf
// dependencies; they know nothing about sessions or routing and surface all
// failures as *ToolError values with stable codes so callers can branch on
// category instead of string matching.
package tool

import (
	"context"
	"errors"
	"fmt"
)

// Adapter is the uniform contract wrapping an external capability. Invoke
// dispatches on operation name; unknown operations fail with
// CodeUnknownOperation. Implementations must be safe for concurrent use and
// honor ctx cancellation on any blocking path.
type Adapter interface {
	// Name returns the unique adapter identifier (snake_case).
	Name() string

	// Invoke executes the named operation with the given arguments.
	Invoke(ctx context.Context, operation string, args map[string]any) (any, error)
}

// Error codes categorizing adapter failures.
const (
	// CodeNotFound reports an empty lookup result (catalog misses are a
	// result, not a crash).
	CodeNotFound = "NOT_FOUND"
	// CodeRateLimited reports an exhausted token bucket.
	CodeRateLimited = "RATE_LIMITED"
	// CodeUpstreamError reports a provider-side failure.
	CodeUpstreamError = "UPSTREAM_ERROR"
	// CodeSandboxViolation reports submitted code attempting a disallowed
	// operation.
	CodeSandboxViolation = "SANDBOX_VIOLATION"
	// CodeTimeout reports an operation exceeding its wall-clock budget.
	CodeTimeout = "TIMEOUT"
	// CodeUnknownOperation reports an operation the adapter does not expose.
	CodeUnknownOperation = "UNKNOWN_OPERATION"
	// CodeInvalidArgs reports missing or mistyped arguments.
	CodeInvalidArgs = "INVALID_ARGS"
)

// ToolError represents errors that occur during adapter invocation.
type ToolError struct {
	Tool      string `json:"tool"`
	Operation string `json:"operation"`
	Message   string `json:"message"`
	Code      string `json:"code"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error [%s] in %s.%s: %s", e.Code, e.Tool, e.Operation, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, operation, message, code string) *ToolError {
	return &ToolError{Tool: tool, Operation: operation, Message: message, Code: code}
}

// HasCode reports whether err is (or wraps) a *ToolError with the given code.
func HasCode(err error, code string) bool {
	var te *ToolError
	return errors.As(err, &te) && te.Code == code
}

// stringArg extracts a required string argument.
func stringArg(tool, op string, args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", NewToolError(tool, op, fmt.Sprintf("missing argument %q", key), CodeInvalidArgs)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", NewToolError(tool, op, fmt.Sprintf("argument %q must be a non-empty string", key), CodeInvalidArgs)
	}
	return s, nil
}
