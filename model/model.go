// Package model defines the opaque language-model capability consumed by
// specialists. The orchestration core never talks to a provider SDK directly;
// it depends on the Model interface and receives a concrete adapter
// (anthropic, openai or a mock) at wiring time.
package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskmesh/deskmesh/core"
)

// Request captures the normalized model input produced by specialists.
type Request struct {
	// Instructions is the system prompt framing the specialist's persona.
	Instructions string `json:"instructions"`
	// History is the bounded window of prior session messages.
	History []core.Message `json:"history"`
	// Query is the current user message.
	Query string `json:"query"`
	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int64 `json:"max_tokens,omitempty"`
}

// Response is the completed model output.
type Response struct {
	Text   string     `json:"text"`
	Usage  TokenUsage `json:"usage"`
	Finish string     `json:"finish_reason,omitempty"`
}

// TokenUsage captures token accounting for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "anthropic", "openai", "mock", ...
}

// Model is the minimal interface specialists require to drive generation.
// Complete must honor ctx cancellation; the coordinator enforces timeouts
// through the passed context.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// EstimateTokens approximates token usage for providers or paths that do not
// report it: roughly four characters per token.
func EstimateTokens(text string) int { return len(text) / 4 }

// MockModel is a lightweight in-memory Model useful for tests and examples.
// It matches canned responses by substring of the query, falling back to a
// default response.
type MockModel struct {
	info     Info
	canned   map[string]string
	fallback string
	err      error
}

// NewMockModel constructs a MockModel with a default completion.
func NewMockModel(fallback string) *MockModel {
	return &MockModel{
		info:     Info{Name: "mock", Provider: "mock"},
		canned:   make(map[string]string),
		fallback: fallback,
	}
}

// AddResponse registers a canned completion returned when the query contains
// the given substring (case-insensitive).
func (m *MockModel) AddResponse(substring, response string) {
	m.canned[strings.ToLower(substring)] = response
}

// FailWith makes every Complete call return err. Useful for retry tests.
func (m *MockModel) FailWith(err error) { m.err = err }

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if m.err != nil {
		return nil, m.err
	}
	text := m.fallback
	q := strings.ToLower(req.Query)
	for sub, resp := range m.canned {
		if strings.Contains(q, sub) {
			text = resp
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no canned response for query %q", req.Query)
	}
	prompt := EstimateTokens(req.Instructions + req.Query)
	completion := EstimateTokens(text)
	return &Response{
		Text:   text,
		Usage:  TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion},
		Finish: "stop",
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
