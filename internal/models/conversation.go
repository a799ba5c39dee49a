// Package models defines persistence records and API request/response types
// for conversations and messages.
package models

import "time"

// Conversation is the durable record for one intake conversation. Metadata
// holds the serialized ConversationContext; the engine itself never touches
// storage and receives the parsed context by value each turn.
type Conversation struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	TenantID  string             `json:"tenant_id"`
	Status    ConversationStatus `json:"status"`
	Metadata  string             `json:"metadata,omitempty"` // serialized ConversationContext
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Message is one persisted utterance in a conversation, append-only.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateConversationRequest is the payload for POST /conversations.
type CreateConversationRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

// Validate checks required fields on a conversation creation request.
func (r *CreateConversationRequest) Validate() error {
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	if r.TenantID == "" {
		return ErrEmptyTenantID
	}
	return nil
}

// SendMessageRequest is the payload for POST /conversations/{id}/messages.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// Validate checks bounds on an incoming message. An empty message is valid:
// it re-asks the current open question without mutating the context.
func (r *SendMessageRequest) Validate() error {
	if len(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// APIResponse is the standard envelope for API responses.
type APIResponse struct {
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Success creates a successful API response with the given result.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: "ok", Result: result}
}

// Error creates an error API response with the given message.
func Error(message string) APIResponse {
	return APIResponse{Status: "error", Error: message}
}
