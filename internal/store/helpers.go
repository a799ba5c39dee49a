package store

import (
	"database/sql"
	"fmt"

	"github.com/leadpilot/icpflow/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanConversationRow scans a Conversation from a single sql.Row.
func scanConversationRow(row *sql.Row) (*models.Conversation, error) {
	var conv models.Conversation
	var metadata sql.NullString
	err := row.Scan(&conv.ID, &conv.UserID, &conv.TenantID, &conv.Status,
		&metadata, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	conv.Metadata = metadata.String
	return &conv, nil
}

// scanMessage scans a Message from sql.Rows.
func scanMessage(rows *sql.Rows) (models.Message, error) {
	var msg models.Message
	err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return msg, fmt.Errorf("scan message failed: %w", err)
	}
	return msg, nil
}
