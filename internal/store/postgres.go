// Package store provides storage backends for icpflow.
//
// This file implements a PostgreSQL-backed store for conversations and messages.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/leadpilot/icpflow/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveConversation inserts or updates a conversation by ID.
func (s *PostgresStore) SaveConversation(conv models.Conversation) error {
	if conv.ID == "" {
		return models.ErrEmptyConversationID
	}
	query := `
		INSERT INTO conversations (id, user_id, tenant_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`
	_, err := s.db.Exec(query, conv.ID, conv.UserID, conv.TenantID, conv.Status,
		nilIfEmpty(conv.Metadata), conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversation failed", "error", err, "conversationID", conv.ID)
		return fmt.Errorf("failed to save conversation %s: %w", conv.ID, err)
	}
	slog.Debug("PostgresStore SaveConversation succeeded", "conversationID", conv.ID, "status", conv.Status)
	return nil
}

// GetConversation retrieves a conversation by ID, or nil when not found.
func (s *PostgresStore) GetConversation(id string) (*models.Conversation, error) {
	query := `SELECT id, user_id, tenant_id, status, metadata, created_at, updated_at
			  FROM conversations WHERE id = $1`
	conv, err := scanConversationRow(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetConversation not found", "conversationID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversation failed", "error", err, "conversationID", id)
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return conv, nil
}

// AddMessage appends one message to a conversation's transcript.
func (s *PostgresStore) AddMessage(msg models.Message) error {
	_, err := s.db.Exec(`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddMessage failed", "error", err, "conversationID", msg.ConversationID)
		return fmt.Errorf("failed to insert message for %s: %w", msg.ConversationID, err)
	}
	return nil
}

// ListMessages returns a conversation's messages oldest first.
func (s *PostgresStore) ListMessages(conversationID string) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		slog.Error("PostgresStore ListMessages query failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			slog.Error("PostgresStore ListMessages scan failed", "error", err)
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	slog.Debug("PostgresStore ListMessages succeeded", "conversationID", conversationID, "count", len(messages))
	return messages, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
