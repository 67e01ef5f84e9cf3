package agent

import (
	"fmt"
	"strings"
	"time"

	"searchagent/internal/domain"
)

// PromptBuilder assembles the system prompt and the message list for a turn.
type PromptBuilder struct {
	systemPromptExtra string
	now               func() time.Time
}

type PromptConfig struct {
	SystemPromptExtra string
}

func NewPromptBuilder(cfg PromptConfig) *PromptBuilder {
	return &PromptBuilder{
		systemPromptExtra: cfg.SystemPromptExtra,
		now:               time.Now,
	}
}

// BuildSystemPrompt describes the assistant and the tools it may call.
func (p *PromptBuilder) BuildSystemPrompt(tools []domain.ToolDefinition) string {
	var b strings.Builder
	b.WriteString(`# Search Assistant

You are a helpful assistant that answers questions about the world around you.
You do not know recent facts by heart: when a question needs current or
factual information, call one of the tools below and base your answer on
what it returns. Answer directly when no tool is needed.

Guidelines:
- Call at most one tool per fact you need and reuse earlier results.
- For cryptocurrency questions pass only coin names or ticker symbols,
  comma-separated, e.g. "bitcoin, xrp".
- If a tool reports that no good result was found, say so instead of guessing.
- Keep the final answer short and cite the numbers the tools returned.
`)
	fmt.Fprintf(&b, "\nCurrent time: %s\n", p.now().Format("2006-01-02 15:04 MST (Monday)"))

	if len(tools) > 0 {
		b.WriteString("\n## Tools\n")
		for _, t := range tools {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		}
	}

	if p.systemPromptExtra != "" {
		b.WriteString("\n## Custom Instructions\n")
		b.WriteString(p.systemPromptExtra)
		b.WriteByte('\n')
	}
	return b.String()
}

// BuildMessages constructs [system + history + user message] for an LLM call.
func (p *PromptBuilder) BuildMessages(history []domain.Message, currentMessage string, tools []domain.ToolDefinition) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: "system", Content: p.BuildSystemPrompt(tools)})
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: "user", Content: currentMessage})
	return messages
}
