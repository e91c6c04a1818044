package tool

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OpExecute is the single operation exposed by the sandbox adapter.
const OpExecute = "execute"

// ExecutionResult is the captured output of a sandbox run.
type ExecutionResult struct {
	Output    string `json:"output"`
	Truncated bool   `json:"truncated"`
}

// SandboxAdapter evaluates arithmetic expressions in an isolated,
// resource-bounded environment. The sandbox has no access to the filesystem,
// network or process environment: submitted code is statically screened for
// disallowed identifiers (CodeSandboxViolation) and then evaluated by a pure
// expression interpreter under a wall-clock budget (CodeTimeout). Output is
// truncated at MaxOutput bytes.
type SandboxAdapter struct {
	budget    time.Duration
	maxOutput int
	maxInput  int
}

// SandboxOptions configures the sandbox adapter.
type SandboxOptions struct {
	// Budget is the wall-clock limit for one execution.
	Budget time.Duration
	// MaxOutput caps the captured output size in bytes.
	MaxOutput int
	// MaxInput caps the accepted expression size in bytes.
	MaxInput int
}

// NewSandboxAdapter constructs a sandbox with a 2s budget and 1KiB output cap.
func NewSandboxAdapter(optFns ...func(o *SandboxOptions)) *SandboxAdapter {
	opts := SandboxOptions{Budget: 2 * time.Second, MaxOutput: 1024, MaxInput: 512}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SandboxAdapter{budget: opts.Budget, maxOutput: opts.MaxOutput, maxInput: opts.MaxInput}
}

// Name implements Adapter.
func (s *SandboxAdapter) Name() string { return "sandbox" }

// denied are identifier fragments whose presence marks an attempt to escape
// the arithmetic sandbox.
var denied = []string{
	"import", "exec", "eval", "open", "read", "write", "file",
	"os.", "sys.", "subprocess", "socket", "http", "net", "__",
	"while", "for", "func", "go ", ";", "`", "$(",
}

// Invoke implements Adapter.
func (s *SandboxAdapter) Invoke(ctx context.Context, operation string, args map[string]any) (any, error) {
	if operation != OpExecute {
		return nil, NewToolError(s.Name(), operation, "operation not supported", CodeUnknownOperation)
	}
	if err := ctx.Err(); err != nil {
		if err == context.DeadlineExceeded {
			return nil, NewToolError(s.Name(), operation, "execution cancelled by deadline", CodeTimeout)
		}
		return nil, err
	}
	code, err := stringArg(s.Name(), operation, args, "code")
	if err != nil {
		return nil, err
	}
	if len(code) > s.maxInput {
		return nil, NewToolError(s.Name(), operation, fmt.Sprintf("expression exceeds %d bytes", s.maxInput), CodeInvalidArgs)
	}
	lowered := strings.ToLower(code)
	for _, bad := range denied {
		if strings.Contains(lowered, bad) {
			return nil, NewToolError(s.Name(), operation, fmt.Sprintf("disallowed operation %q", strings.TrimSpace(bad)), CodeSandboxViolation)
		}
	}

	type outcome struct {
		value float64
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, evalErr := evaluate(code)
		done <- outcome{value: v, err: evalErr}
	}()

	timer := time.NewTimer(s.budget)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, NewToolError(s.Name(), operation, "execution cancelled by deadline", CodeTimeout)
		}
		return nil, ctx.Err()
	case <-timer.C:
		return nil, NewToolError(s.Name(), operation, fmt.Sprintf("execution exceeded %s budget", s.budget), CodeTimeout)
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		text := strconv.FormatFloat(out.value, 'f', -1, 64)
		truncated := false
		if len(text) > s.maxOutput {
			text = text[:s.maxOutput]
			truncated = true
		}
		return &ExecutionResult{Output: text, Truncated: truncated}, nil
	}
}
