package agent

import (
	"strings"

	"github.com/atelier-works/concierge/internal/domain"
)

// personaPrompt frames every model call. The rendered prompt folds the prior
// transcript and the latest customer message into a single user turn.
const personaPrompt = `You are the personal concierge for Atelier & Co., a premium clothing and
accessories retailer. You help customers browse the collection, check and
manage their orders, book and manage styling or fitting appointments, and
answer questions about store policies.

Guidelines:
- Use the available tools to look up real data before answering; never invent
  product, order, or appointment details.
- If a tool reports an error, explain the problem to the customer in plain
  language and suggest what they can do next.
- Only discuss topics related to our products, orders, appointments, and
  services. Politely decline anything else.
- Be warm, concise, and professional.`

// renderPrompt produces the single user-role prompt that seeds the loop
// transcript: persona, prior conversation, then the latest customer message.
// Blank lines are collapsed so the prompt stays compact.
func renderPrompt(latest string, previous []domain.Message) string {
	var b strings.Builder
	b.WriteString(personaPrompt)
	b.WriteString("\n\n")

	if history := renderHistory(previous); history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}

	b.WriteString("Customer message: ")
	b.WriteString(latest)

	return collapseBlankLines(b.String())
}

func renderHistory(previous []domain.Message) string {
	var lines []string
	for _, msg := range previous {
		switch msg.Role {
		case domain.RoleUser:
			lines = append(lines, "Customer: "+msg.Content)
		case domain.RoleAssistant:
			if msg.Content != "" {
				lines = append(lines, "Concierge: "+msg.Content)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func collapseBlankLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
