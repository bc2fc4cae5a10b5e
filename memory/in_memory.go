package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/agentstudio/core"
)

// InMemoryStore is a process-local ConversationStore keeping the user and
// assistant turns of each conversation in append order.
//
// Concurrency: protected by RWMutex.
// Retention: when MaxMessages is positive only the most recent messages of a
// conversation are kept.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]core.Message // conversationID -> turns
	maxMessages   int
}

// Options configure an InMemoryStore.
type Options struct {
	// MaxMessages caps the retained turns per conversation; 0 keeps all.
	MaxMessages int
}

// NewInMemoryStore creates a new in-memory conversation store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{
		conversations: make(map[string][]core.Message),
		maxMessages:   opts.MaxMessages,
	}
}

// History returns a copy of the stored turns of a conversation.
func (m *InMemoryStore) History(_ context.Context, conversationID string) ([]core.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return core.CloneMessages(m.conversations[conversationID]), nil
}

// AppendTurns appends user and assistant messages; other roles are skipped.
func (m *InMemoryStore) AppendTurns(_ context.Context, conversationID string, msgs ...core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.conversations[conversationID]
	for _, msg := range msgs {
		if msg.Role != core.RoleUser && msg.Role != core.RoleAssistant {
			continue
		}
		turns = append(turns, core.Message{Role: msg.Role, Content: msg.Content})
	}
	if m.maxMessages > 0 && len(turns) > m.maxMessages {
		turns = append([]core.Message(nil), turns[len(turns)-m.maxMessages:]...)
	}
	m.conversations[conversationID] = turns
	return nil
}

// Clear removes a conversation. Clearing an unknown conversation is a no-op.
func (m *InMemoryStore) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, conversationID)
	return nil
}

// Conversations returns the ids of all stored conversations, sorted.
func (m *InMemoryStore) Conversations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.conversations))
	for id := range m.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
