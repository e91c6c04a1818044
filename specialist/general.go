package specialist

import (
	"context"
	"fmt"

	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/model"
)

const generalInstructions = `You are a friendly and professional customer support agent for an e-commerce store.
Handle greetings and general questions conversationally. Be warm, concise and helpful.
Use the conversation history to maintain context and remember what the customer told you.`

// General is the pure-conversation specialist: greetings and everything that
// needs no tool. It delegates entirely to the opaque model capability.
type General struct {
	model        model.Model
	instructions string
	maxTokens    int64
}

// GeneralOptions configures the general specialist.
type GeneralOptions struct {
	// Instructions overrides the default support persona.
	Instructions string
	// MaxTokens caps completions. Zero keeps the model default.
	MaxTokens int64
}

// NewGeneral constructs the general specialist around a model.
func NewGeneral(m model.Model, optFns ...func(o *GeneralOptions)) *General {
	opts := GeneralOptions{Instructions: generalInstructions}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &General{model: m, instructions: opts.Instructions, maxTokens: opts.MaxTokens}
}

// Name implements Specialist.
func (g *General) Name() string { return GeneralName }

// Capability implements Specialist.
func (g *General) Capability() Capability { return CapabilityPureConversation }

// Execute implements Specialist.
func (g *General) Execute(ctx context.Context, query string, history []core.Message) (*Result, error) {
	resp, err := g.model.Complete(ctx, model.Request{
		Instructions: g.instructions,
		History:      history,
		Query:        query,
		MaxTokens:    g.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("general specialist: %w", err)
	}
	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		tokens = model.EstimateTokens(query + resp.Text)
	}
	return &Result{Text: resp.Text, Tokens: tokens}, nil
}
