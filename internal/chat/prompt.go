package chat

import (
	"strings"

	"github.com/ziadkadry99/macbot/internal/llm"
)

// contextInstructions is appended to the persona when retrieved context
// accompanies the conversation.
const contextInstructions = "\n\nThe conversation includes a system message with excerpts retrieved from the user's documents. " +
	"Ground your answer in those excerpts when they are relevant and cite them by source file " +
	"(and page, when given). If the excerpts do not cover the question, say so and answer from " +
	"your general knowledge of the play."

// BuildPrompt returns the message list sent upstream. It always carries
// exactly one persona message first: the client's first system message
// when present, otherwise persona. Further client system messages are
// dropped. A non-empty retrieved block is spliced in as its own system
// message immediately before the last user message, or appended to the
// persona when the conversation has no user message.
func BuildPrompt(messages []llm.Message, persona, retrieved string) []llm.Message {
	personaText := persona
	rest := make([]llm.Message, 0, len(messages)+1)
	seenSystem := false
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			if !seenSystem && strings.TrimSpace(m.Content) != "" {
				personaText = m.Content
				seenSystem = true
			}
			continue
		}
		rest = append(rest, m)
	}

	if retrieved == "" {
		return append([]llm.Message{{Role: llm.RoleSystem, Content: personaText}}, rest...)
	}

	personaText += contextInstructions
	last := lastUserIndex(rest)
	if last < 0 {
		personaText += "\n\n" + retrieved
		return append([]llm.Message{{Role: llm.RoleSystem, Content: personaText}}, rest...)
	}

	out := make([]llm.Message, 0, len(rest)+2)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: personaText})
	out = append(out, rest[:last]...)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: retrieved})
	out = append(out, rest[last:]...)
	return out
}

// LatestUserMessage returns the content of the last user message, or "".
func LatestUserMessage(messages []llm.Message) string {
	if i := lastUserIndex(messages); i >= 0 {
		return messages[i].Content
	}
	return ""
}

func lastUserIndex(messages []llm.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return i
		}
	}
	return -1
}
