// Package store provides storage backends for icpflow.
//
// This file implements an SQLite-backed store for conversations and messages.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/leadpilot/icpflow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveConversation inserts or updates a conversation by ID.
func (s *SQLiteStore) SaveConversation(conv models.Conversation) error {
	if conv.ID == "" {
		return models.ErrEmptyConversationID
	}
	query := `
		INSERT OR REPLACE INTO conversations (id, user_id, tenant_id, status, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, conv.ID, conv.UserID, conv.TenantID, conv.Status,
		nilIfEmpty(conv.Metadata), conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation failed", "error", err, "conversationID", conv.ID)
		return fmt.Errorf("failed to save conversation %s: %w", conv.ID, err)
	}
	slog.Debug("SQLiteStore SaveConversation succeeded", "conversationID", conv.ID, "status", conv.Status)
	return nil
}

// GetConversation retrieves a conversation by ID, or nil when not found.
func (s *SQLiteStore) GetConversation(id string) (*models.Conversation, error) {
	query := `SELECT id, user_id, tenant_id, status, metadata, created_at, updated_at
			  FROM conversations WHERE id = ?`
	conv, err := scanConversationRow(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetConversation not found", "conversationID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversation failed", "error", err, "conversationID", id)
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return conv, nil
}

// AddMessage appends one message to a conversation's transcript.
func (s *SQLiteStore) AddMessage(msg models.Message) error {
	_, err := s.db.Exec(`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddMessage failed", "error", err, "conversationID", msg.ConversationID)
		return fmt.Errorf("failed to insert message for %s: %w", msg.ConversationID, err)
	}
	return nil
}

// ListMessages returns a conversation's messages oldest first.
func (s *SQLiteStore) ListMessages(conversationID string) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		slog.Error("SQLiteStore ListMessages query failed", "error", err, "conversationID", conversationID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			slog.Error("SQLiteStore ListMessages scan failed", "error", err)
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	slog.Debug("SQLiteStore ListMessages succeeded", "conversationID", conversationID, "count", len(messages))
	return messages, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
