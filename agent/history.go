package agent

import (
	"fmt"
	"strings"
)

// Message is one prior conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// historyWindow is the number of trailing turns folded into the message.
const historyWindow = 6

// composeMessage prefixes the current message with a textual rendering of
// the trailing conversation history. With no history the message passes
// through unchanged.
func composeMessage(message string, history []Message) string {
	if len(history) == 0 {
		return message
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(turn.Role), turn.Content))
	}
	return fmt.Sprintf(`Previous conversation:
%s

Current message from USER: %s

Please respond to the current message, taking the conversation history into account.`,
		strings.Join(lines, "\n"), message)
}
