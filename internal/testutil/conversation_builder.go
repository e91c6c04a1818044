package testutil

import (
	"github.com/deskmesh/deskmesh/core"
)

// ConversationBuilder constructs message histories with fluent chaining for
// tests.
// Example:
//
//	msgs := NewConversationBuilder().User("Hi").Specialist("general", "Hello!").Build()
type ConversationBuilder struct {
	messages []core.Message
}

// NewConversationBuilder creates an empty builder.
func NewConversationBuilder() *ConversationBuilder {
	return &ConversationBuilder{}
}

// User appends a customer message (chainable).
func (b *ConversationBuilder) User(content string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewUserMessage(content))
	return b
}

// Specialist appends a specialist message (chainable).
func (b *ConversationBuilder) Specialist(name, content string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewSpecialistMessage(name, content))
	return b
}

// System appends a coordinator message (chainable).
func (b *ConversationBuilder) System(content string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewSystemMessage(content))
	return b
}

// Build returns the accumulated messages in order.
func (b *ConversationBuilder) Build() []core.Message {
	out := make([]core.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Session returns a session with the accumulated messages pre-populated.
func (b *ConversationBuilder) Session(id string) *core.Session {
	s := core.NewSession(id)
	s.Messages = append(s.Messages, b.messages...)
	return s
}
