package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"searchagent/internal/domain"
)

// BufferStore keeps conversations in process memory. It backs the agent when
// persistent memory is disabled, so history still carries across turns of a
// single chat session.
type BufferStore struct {
	mu       sync.RWMutex
	convs    map[string]domain.Conversation
	messages map[string][]domain.MessageRecord
	nextID   int64
}

var _ domain.MemoryStore = (*BufferStore)(nil)

func NewBufferStore() *BufferStore {
	return &BufferStore{
		convs:    make(map[string]domain.Conversation),
		messages: make(map[string][]domain.MessageRecord),
	}
}

func (b *BufferStore) CreateConversation(_ context.Context, conv domain.Conversation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.convs[conv.ID]; ok {
		return nil
	}
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}
	b.convs[conv.ID] = conv
	return nil
}

func (b *BufferStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	conv, ok := b.convs[id]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

func (b *BufferStore) UpdateConversation(_ context.Context, conv domain.Conversation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.convs[conv.ID]; !ok {
		return nil
	}
	conv.UpdatedAt = time.Now()
	b.convs[conv.ID] = conv
	return nil
}

func (b *BufferStore) ListConversations(_ context.Context, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	b.mu.RLock()
	convs := make([]domain.Conversation, 0, len(b.convs))
	for _, c := range b.convs {
		convs = append(convs, c)
	}
	b.mu.RUnlock()

	sort.Slice(convs, func(i, j int) bool { return convs[i].UpdatedAt.After(convs[j].UpdatedAt) })
	if len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (b *BufferStore) DeleteConversation(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.convs, id)
	delete(b.messages, id)
	return nil
}

func (b *BufferStore) AddMessage(_ context.Context, convID string, msg domain.MessageRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	msg.ID = b.nextID
	msg.ConversationID = convID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	b.messages[convID] = append(b.messages[convID], msg)
	if conv, ok := b.convs[convID]; ok {
		conv.UpdatedAt = msg.CreatedAt
		b.convs[convID] = conv
	}
	return nil
}

func (b *BufferStore) GetMessages(_ context.Context, convID string, limit int) ([]domain.MessageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	msgs := b.messages[convID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.MessageRecord, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (b *BufferStore) Close() error { return nil }
