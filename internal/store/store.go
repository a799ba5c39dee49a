// Package store provides storage backends for icpflow.
//
// It includes an in-memory store for tests and single-process deployments,
// plus SQLite and PostgreSQL backed stores for persistent conversations.
package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leadpilot/icpflow/internal/models"
)

// Store is the persistence seam for conversations and their messages.
// Implementations must be safe for concurrent use.
type Store interface {
	// SaveConversation inserts or updates a conversation by ID.
	SaveConversation(conv models.Conversation) error
	// GetConversation returns the conversation or nil when not found.
	GetConversation(id string) (*models.Conversation, error)
	// AddMessage appends one message to a conversation's transcript.
	AddMessage(msg models.Message) error
	// ListMessages returns a conversation's messages oldest first.
	ListMessages(conversationID string) ([]models.Message, error)
	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option configures store creation.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL-shaped DSNs and "sqlite"
// for everything else (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a mutex-guarded in-memory store.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
	messages      map[string][]models.Message
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
	}
}

// SaveConversation inserts or updates a conversation by ID.
func (s *InMemoryStore) SaveConversation(conv models.Conversation) error {
	if conv.ID == "" {
		return models.ErrEmptyConversationID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = conv
	slog.Debug("InMemoryStore.SaveConversation succeeded", "conversationID", conv.ID, "status", conv.Status)
	return nil
}

// GetConversation returns a copy of the conversation or nil when not found.
func (s *InMemoryStore) GetConversation(id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

// AddMessage appends one message to a conversation's transcript.
func (s *InMemoryStore) AddMessage(msg models.Message) error {
	if msg.ConversationID == "" {
		return models.ErrEmptyConversationID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	return nil
}

// ListMessages returns a conversation's messages oldest first.
func (s *InMemoryStore) ListMessages(conversationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.messages[conversationID]
	out := make([]models.Message, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
