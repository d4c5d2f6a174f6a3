package openrouter

import (
	"fmt"

	"github.com/aircasthq/panel-core/core/producers"
)

type messageRole = string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

// toMessages renders the system prompt and the recent conversation into chat
// messages. Every prior turn is presented as labelled user content so the
// model sees who said what; only the responding agent's own voice comes back
// as the assistant.
func toMessages(instructions string, context []producers.ContextTurn) []message {
	messages := make([]message, 0, len(context)+1)
	if instructions != "" {
		messages = append(messages, message{Role: messageRoleSystem, Content: instructions})
	}

	for _, turn := range context {
		speaker := turn.Speaker
		if turn.IsAudience {
			speaker = "Audience member"
		}
		messages = append(messages, message{
			Role:    messageRoleUser,
			Content: fmt.Sprintf("%s: %s", speaker, turn.Text),
		})
	}

	return messages
}
