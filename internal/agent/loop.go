package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"searchagent/internal/domain"
)

const (
	defaultMaxIterations = 10
	defaultHistoryLimit  = 50
	defaultRatePerMinute = 30
	defaultRateBurst     = 5

	// IterationLimitMessage is returned when the model keeps calling tools
	// past the iteration budget.
	IterationLimitMessage = "Agent stopped due to iteration limit or time limit."
	emptyAnswerMessage    = "I've completed processing but have no additional response."
)

// ToolExecutor is the tool registry as seen by the loop.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
	GetDefinitions() []domain.ToolDefinition
}

// Loop is the agent engine: build prompt → call LLM → execute tools → respond.
type Loop struct {
	provider      domain.Provider
	sessions      *SessionManager
	prompt        *PromptBuilder
	tools         ToolExecutor
	logger        *slog.Logger
	maxIterations int
	historyLimit  int
	temperature   float64
	maxTokens     int
	model         string
	limiter       *rate.Limiter
}

// LoopConfig holds all dependencies and tuning parameters for the agent loop.
type LoopConfig struct {
	Provider      domain.Provider
	Sessions      *SessionManager
	Prompt        *PromptBuilder
	Tools         ToolExecutor
	Logger        *slog.Logger
	MaxIterations int     // default 10
	HistoryLimit  int     // messages replayed per turn (default 50)
	Temperature   float64 // sent as is; 0 keeps answers deterministic
	MaxTokens     int
	Model         string // empty: provider default
	RatePerMinute int    // LLM calls per minute (default 30)
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = defaultRatePerMinute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Prompt == nil {
		cfg.Prompt = NewPromptBuilder(PromptConfig{})
	}
	return &Loop{
		provider:      cfg.Provider,
		sessions:      cfg.Sessions,
		prompt:        cfg.Prompt,
		tools:         cfg.Tools,
		logger:        cfg.Logger,
		maxIterations: cfg.MaxIterations,
		historyLimit:  cfg.HistoryLimit,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		model:         cfg.Model,
		limiter:       rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), defaultRateBurst),
	}
}

// NewSessionKey returns a fresh conversation key.
func NewSessionKey() string {
	return "cli:" + uuid.NewString()
}

// Ask answers a single question in a throwaway conversation.
func (l *Loop) Ask(ctx context.Context, question string) (string, error) {
	key := NewSessionKey()
	answer, err := l.ProcessDirect(ctx, question, key)
	if l.sessions != nil {
		if clearErr := l.sessions.ClearSession(ctx, key); clearErr != nil {
			l.logger.Debug("cannot drop one-shot conversation", "session", key, "err", clearErr)
		}
	}
	return answer, err
}

// ProcessDirect runs one turn of the conversation identified by sessionKey
// and returns the final answer. History of earlier turns is replayed.
func (l *Loop) ProcessDirect(ctx context.Context, content, sessionKey string) (string, error) {
	var (
		convID  string
		history []domain.Message
		err     error
	)
	if l.sessions != nil {
		convID, err = l.sessions.GetOrCreateConversation(ctx, sessionKey, l.provider.Name(), l.model)
		if err != nil {
			return "", fmt.Errorf("session error: %w", err)
		}
		history, err = l.sessions.GetHistory(ctx, convID, l.historyLimit)
		if err != nil {
			l.logger.Warn("failed to load history, continuing without it", "error", err)
			history = nil
		}
	}

	var toolDefs []domain.ToolDefinition
	if l.tools != nil {
		toolDefs = l.tools.GetDefinitions()
	}
	messages := l.prompt.BuildMessages(history, content, toolDefs)

	finalContent, err := l.run(ctx, convID, messages, toolDefs)
	if err != nil {
		return "", err
	}

	if l.sessions != nil {
		if err := l.sessions.SaveMessage(ctx, convID, domain.Message{Role: "user", Content: content}); err != nil {
			l.logger.Warn("failed to save user message", "error", err, "convID", convID)
		}
		if err := l.sessions.SaveMessage(ctx, convID, domain.Message{Role: "assistant", Content: finalContent}); err != nil {
			l.logger.Warn("failed to save assistant message", "error", err, "convID", convID)
		}
		if len(history) == 0 {
			l.sessions.UpdateTitle(ctx, convID, content)
		}
	}
	return finalContent, nil
}

// run is the tool-calling loop. Tool calls run sequentially in the order the
// model issued them.
func (l *Loop) run(ctx context.Context, convID string, messages []domain.Message, toolDefs []domain.ToolDefinition) (string, error) {
	for iteration := 0; iteration < l.maxIterations; iteration++ {
		l.logger.Debug("agent iteration", "iteration", iteration+1, "messages", len(messages))

		if err := l.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}

		resp, err := l.provider.Chat(ctx, domain.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Model:       l.model,
			MaxTokens:   l.maxTokens,
			Temperature: l.temperature,
		})
		if err != nil {
			return "", fmt.Errorf("LLM error: %w", err)
		}
		if l.sessions != nil {
			l.sessions.AddTokenUsage(convID, resp.Usage.TotalTokens)
		}

		if !resp.HasToolCalls() && resp.Content != "" {
			if answer, ok := extractFinalAnswer(resp.Content); ok {
				return finalize(answer), nil
			}
			if extracted := extractToolCallsFromContent(resp.Content); len(extracted) > 0 {
				resp.ToolCalls = extracted
				resp.Content = ""
				l.logger.Debug("extracted tool calls from content text", "count", len(extracted))
			}
		}

		if !resp.HasToolCalls() {
			return finalize(resp.Content), nil
		}

		messages = append(messages, domain.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result := l.executeTool(ctx, convID, tc)
			messages = append(messages, domain.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			})
		}
	}

	l.logger.Warn("agent reached iteration limit", "max_iterations", l.maxIterations)
	return IterationLimitMessage, nil
}

func finalize(content string) string {
	content = unwrapParseFailure(stripRolePrefix(content))
	if content == "" {
		return emptyAnswerMessage
	}
	return content
}

// executeTool runs a single tool call. Failures become the result text so
// the model can react to them.
func (l *Loop) executeTool(ctx context.Context, convID string, tc domain.ToolCall) string {
	l.logger.Info("executing tool", "tool", tc.Name)

	argsJSON, _ := json.Marshal(tc.Arguments)
	l.logger.Debug("tool arguments", "tool", tc.Name, "args", string(argsJSON))

	start := time.Now()
	var (
		result string
		err    error
	)
	if l.tools == nil {
		err = fmt.Errorf("tool registry not initialized")
	} else {
		result, err = l.tools.Execute(ctx, tc.Name, tc.Arguments)
	}

	inv := domain.ToolInvocation{
		ConversationID: convID,
		ToolName:       tc.Name,
		Arguments:      string(argsJSON),
		DurationMs:     time.Since(start).Milliseconds(),
	}
	if err != nil {
		l.logger.Warn("tool failed", "tool", tc.Name, "err", err)
		result = fmt.Sprintf("Error executing tool %s: %s", tc.Name, err.Error())
		inv.Error = err.Error()
	} else {
		l.logger.Debug("tool completed", "tool", tc.Name, "result_len", len(result))
		inv.Result = result
	}
	if l.sessions != nil {
		l.sessions.LogToolInvocation(ctx, inv)
	}
	return result
}
