package agent

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"searchagent/internal/domain"
)

const (
	parseFailurePrefix = "Could not parse LLM output: `"
	parseFailureSuffix = "`"
)

// unwrapParseFailure strips the "Could not parse LLM output: `...`" wrapper
// some models echo back, keeping the inner answer.
func unwrapParseFailure(content string) string {
	if !strings.HasPrefix(content, parseFailurePrefix) {
		return content
	}
	content = strings.TrimPrefix(content, parseFailurePrefix)
	return strings.TrimSuffix(content, parseFailureSuffix)
}

func newToolCallID() string {
	return "call_" + uuid.NewString()
}

// extractToolCallsFromContent attempts to parse tool calls from LLM content text.
// Some models return tool calls as JSON in the content instead of using the
// structured tool_calls field. Handles several patterns:
//   - Pure JSON: `{"name":"wikipedia","arguments":{...}}`
//   - Code-fenced: ```json\n{...}\n```
//   - Prefixed text: `assistant\n{"name":"crypto_search",...}`
//   - Mixed text:   `Sure.\n{"name":"calculator",...}\nLet me do that.`
//   - ReAct style: {"action":"crypto_search","action_input":"btc"}
func extractToolCallsFromContent(content string) []domain.ToolCall {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present.
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) >= 3 && strings.HasPrefix(lines[len(lines)-1], "```") {
			content = strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	// Fast path: try full content as JSON.
	if calls := tryParseToolJSON(content); len(calls) > 0 {
		return calls
	}

	// Fallback: find JSON object/array boundaries within surrounding text.
	// This handles prefix text, suffix text, or both (e.g. "assistant\n{...}\nI'll do that.").
	if start, end := findJSONBounds(content); start >= 0 && end > start {
		candidate := content[start:end]
		if calls := tryParseToolJSON(candidate); len(calls) > 0 {
			return calls
		}
	}

	return nil
}

// findJSONBounds locates the first top-level JSON object ({}) or array ([]) in s.
// Returns the start index and end+1 index, or (-1, -1) if not found.
func findJSONBounds(s string) (int, int) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return -1, -1
	}

	openChar := s[start]
	var closeChar byte
	if openChar == '{' {
		closeChar = '}'
	} else {
		closeChar = ']'
	}

	depth := 0
	inStr := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inStr {
			if ch == '\\' {
				i++ // skip escaped character
				continue
			}
			if ch == '"' {
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return start, i + 1
			}
		}
	}
	return -1, -1
}

// tryParseToolJSON attempts to parse raw as a single tool call object or an array.
func tryParseToolJSON(raw string) []domain.ToolCall {
	// Try single object.
	var single struct {
		Name        string         `json:"name"`
		Parameters  map[string]any `json:"parameters"`
		Arguments   map[string]any `json:"arguments"`
		Action      string         `json:"action"`
		ActionInput any            `json:"action_input"`
	}
	text := raw
	if err := json.Unmarshal([]byte(text), &single); err != nil {
		text = sanitizeJSONEscapes(text)
		_ = json.Unmarshal([]byte(text), &single)
	}
	if single.Name != "" {
		args := coalesce(single.Parameters, single.Arguments)
		return []domain.ToolCall{{
			ID:        newToolCallID(),
			Name:      normalizeToolName(single.Name),
			Arguments: args,
		}}
	}
	if single.Action != "" && !strings.EqualFold(single.Action, "Final Answer") {
		return []domain.ToolCall{{
			ID:        newToolCallID(),
			Name:      normalizeToolName(single.Action),
			Arguments: actionInputArgs(single.ActionInput),
		}}
	}

	// Try array.
	var multi []struct {
		Name       string         `json:"name"`
		Parameters map[string]any `json:"parameters"`
		Arguments  map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(text), &multi); err != nil {
		_ = json.Unmarshal([]byte(sanitizeJSONEscapes(raw)), &multi)
	}
	var calls []domain.ToolCall
	for _, tc := range multi {
		if tc.Name == "" {
			continue
		}
		calls = append(calls, domain.ToolCall{
			ID:        newToolCallID(),
			Name:      normalizeToolName(tc.Name),
			Arguments: coalesce(tc.Parameters, tc.Arguments),
		})
	}
	if len(calls) > 0 {
		return calls
	}

	return nil
}

// normalizeToolName maps the display names a model may echo back (for example
// "Crypto Currency Search" or "Wolfram Alpha") onto registered tool names.
func normalizeToolName(name string) string {
	aliases := map[string]string{
		"crypto currency search": "crypto_search",
		"cryptocurrency search":  "crypto_search",
		"crypto-search":          "crypto_search",
		"cryptosearch":           "crypto_search",
		"crypto price":           "crypto_price",
		"current search":         "current_search",
		"google search":          "google_search",
		"bing search":            "bing_search",
		"searx search":           "searx_search",
		"meta search":            "searx_search",
		"wolfram alpha":          "wolfram_alpha",
		"wolframalpha":           "wolfram_alpha",
		"websearch":              "web_search",
		"web-search":             "web_search",
		"llm-math":               "calculator",
		"calc":                   "calculator",
	}
	if mapped, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return mapped
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// actionInputArgs converts a ReAct action_input into tool arguments. A plain
// string becomes the query.
func actionInputArgs(in any) map[string]any {
	switch v := in.(type) {
	case map[string]any:
		return v
	case string:
		return map[string]any{"query": v, "expression": v}
	default:
		return make(map[string]any)
	}
}

// stripRolePrefix removes role-name prefixes that some LLMs (especially smaller
// Ollama models) leak into their content. Examples: "assistant\nHello" → "Hello",
// "Assistant: Hello" → "Hello".
func stripRolePrefix(content string) string {
	// Common leaked prefixes from chat-template-aware models.
	prefixes := []string{
		"assistant\n",
		"Assistant\n",
		"assistant:\n",
		"Assistant:\n",
		"assistant: ",
		"Assistant: ",
	}
	trimmed := content
	for _, p := range prefixes {
		if strings.HasPrefix(trimmed, p) {
			trimmed = strings.TrimSpace(trimmed[len(p):])
			break
		}
	}
	return trimmed
}

// coalesce returns the first non-nil map, or an empty map if both are nil.
func coalesce(a, b map[string]any) map[string]any {
	if a != nil {
		return a
	}
	if b != nil {
		return b
	}
	return make(map[string]any)
}

// sanitizeJSONEscapes fixes invalid JSON escape sequences produced by some LLMs.
// Valid JSON escapes: \", \\, \/, \b, \f, \n, \r, \t, \uXXXX.
// Invalid ones (e.g. \% or \Y) are corrected by dropping the backslash.
func sanitizeJSONEscapes(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' && (i == 0 || s[i-1] != '\\') {
			inString = !inString
			buf.WriteByte(ch)
			continue
		}
		if inString && ch == '\\' && i+1 < len(s) {
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				buf.WriteByte(ch) // valid escape, keep the backslash
			default:
				continue // invalid escape, drop the backslash
			}
		} else {
			buf.WriteByte(ch)
		}
	}
	return buf.String()
}

// extractFinalAnswer recognizes a ReAct style final answer, either as
// {"action":"Final Answer","action_input":"..."} or a "Final Answer:" line.
func extractFinalAnswer(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	if start, end := findJSONBounds(trimmed); start >= 0 && end > start {
		var obj struct {
			Action      string `json:"action"`
			ActionInput any    `json:"action_input"`
		}
		if err := json.Unmarshal([]byte(trimmed[start:end]), &obj); err == nil && strings.EqualFold(obj.Action, "Final Answer") {
			if s, ok := obj.ActionInput.(string); ok {
				return s, true
			}
		}
	}
	const marker = "Final Answer:"
	if idx := strings.LastIndex(trimmed, marker); idx >= 0 {
		return strings.TrimSpace(trimmed[idx+len(marker):]), true
	}
	return "", false
}
