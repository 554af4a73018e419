package inference

import "strings"

// Role is who authored a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// NewSystemMessage returns a system instruction, e.g. the robot persona.
func NewSystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// NewUserMessage returns a user turn.
func NewUserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// NewAssistantMessage returns a model turn.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// splitSystem pulls every system message out of msgs, joined by newlines,
// for APIs that take the instruction separately.
func splitSystem(msgs []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
		} else {
			rest = append(rest, m)
		}
	}
	return strings.Join(system, "\n"), rest
}
