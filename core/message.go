package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author category of a message.
type Role string

const (
	// RoleUser marks a message authored by the end customer.
	RoleUser Role = "user"
	// RoleSpecialist marks a message produced by a specialist on behalf of
	// the system.
	RoleSpecialist Role = "specialist"
	// RoleSystem marks synthetic messages (fallback apologies, escalation
	// notices) injected by the coordinator itself.
	RoleSystem Role = "system"
)

// Message is a single entry in a session's ordered history. Messages are
// immutable once appended; the Specialist field is empty for user and system
// messages.
type Message struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Specialist string    `json:"specialist,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewUserMessage creates a customer-authored message.
func NewUserMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewSpecialistMessage creates a message authored by the named specialist.
func NewSpecialistMessage(specialist, content string) Message {
	return Message{ID: NewID(), Role: RoleSpecialist, Content: content, Specialist: specialist, Timestamp: time.Now().UTC()}
}

// NewSystemMessage creates a coordinator-authored message such as a fallback
// response or an escalation notice.
func NewSystemMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleSystem, Content: content, Timestamp: time.Now().UTC()}
}

// NewID generates a unique identifier for messages, turns and tickets.
func NewID() string { return uuid.NewString() }
