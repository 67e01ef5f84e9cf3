package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"searchagent/internal/domain"
)

const defaultTitle = "New conversation"

// SessionManager maps chat sessions onto persisted conversations.
type SessionManager struct {
	store  domain.MemoryStore
	logger *slog.Logger
	mu     sync.Mutex

	tokenUsageMu sync.RWMutex
	tokenUsage   map[string]int64 // convID -> tokens this process
}

func NewSessionManager(store domain.MemoryStore, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		store:      store,
		logger:     logger,
		tokenUsage: make(map[string]int64),
	}
}

func (sm *SessionManager) AddTokenUsage(convID string, tokens int) {
	if tokens <= 0 {
		return
	}
	sm.tokenUsageMu.Lock()
	sm.tokenUsage[convID] += int64(tokens)
	sm.tokenUsageMu.Unlock()
}

func (sm *SessionManager) GetTokenUsage(convID string) int64 {
	sm.tokenUsageMu.RLock()
	defer sm.tokenUsageMu.RUnlock()
	return sm.tokenUsage[convID]
}

func (sm *SessionManager) GetOrCreateConversation(ctx context.Context, sessionKey, provider, model string) (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	conv, err := sm.store.GetConversation(ctx, sessionKey)
	if err != nil {
		return "", err
	}
	if conv != nil {
		return conv.ID, nil
	}

	newConv := domain.Conversation{
		ID:       sessionKey,
		Title:    defaultTitle,
		Provider: provider,
		Model:    model,
	}
	if err := sm.store.CreateConversation(ctx, newConv); err != nil {
		return "", err
	}
	sm.logger.Debug("created new conversation", "session", sessionKey, "provider", provider)
	return sessionKey, nil
}

func (sm *SessionManager) GetHistory(ctx context.Context, convID string, limit int) ([]domain.Message, error) {
	records, err := sm.store.GetMessages(ctx, convID, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(records))
	for _, r := range records {
		msg := domain.Message{
			Role:       r.Role,
			Content:    r.Content,
			ToolCallID: r.ToolCallID,
			ToolName:   r.ToolName,
		}
		if r.ToolCalls != "" {
			var toolCalls []domain.ToolCall
			if err := json.Unmarshal([]byte(r.ToolCalls), &toolCalls); err == nil {
				msg.ToolCalls = toolCalls
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (sm *SessionManager) SaveMessage(ctx context.Context, convID string, msg domain.Message) error {
	record := domain.MessageRecord{
		ConversationID: convID,
		Role:           msg.Role,
		Content:        msg.Content,
		ToolCallID:     msg.ToolCallID,
		ToolName:       msg.ToolName,
	}
	if len(msg.ToolCalls) > 0 {
		if data, err := json.Marshal(msg.ToolCalls); err == nil {
			record.ToolCalls = string(data)
		}
	}
	return sm.store.AddMessage(ctx, convID, record)
}

func (sm *SessionManager) UpdateTitle(ctx context.Context, convID string, firstUserMsg string) {
	conv, err := sm.store.GetConversation(ctx, convID)
	if err != nil || conv == nil {
		return
	}
	if conv.Title != "" && conv.Title != defaultTitle {
		return
	}
	conv.Title = generateTitle(firstUserMsg)
	if err := sm.store.UpdateConversation(ctx, *conv); err != nil {
		sm.logger.Warn("failed to update conversation title", "convID", convID, "err", err)
	}
}

// ClearSession deletes a conversation and its messages.
func (sm *SessionManager) ClearSession(ctx context.Context, sessionKey string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.store.DeleteConversation(ctx, sessionKey)
}

// LogToolInvocation records inv when the store keeps an audit trail.
func (sm *SessionManager) LogToolInvocation(ctx context.Context, inv domain.ToolInvocation) {
	auditor, ok := sm.store.(domain.ToolAuditor)
	if !ok {
		return
	}
	if err := auditor.LogToolInvocation(ctx, inv); err != nil {
		sm.logger.Warn("failed to record tool invocation", "tool", inv.ToolName, "err", err)
	}
}

func generateTitle(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return defaultTitle
	}
	if idx := strings.IndexAny(msg, "\n\r"); idx > 0 {
		msg = msg[:idx]
	}
	if len(msg) > 60 {
		cut := strings.LastIndex(msg[:60], " ")
		if cut < 20 {
			cut = 60
		}
		msg = msg[:cut] + "..."
	}
	return msg
}
