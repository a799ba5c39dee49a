// Package api provides conversation management handlers for icpflow endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/leadpilot/icpflow/internal/models"
	"github.com/leadpilot/icpflow/internal/util"
)

// turnResponse is the payload returned for every processed turn.
type turnResponse struct {
	ConversationID    string                     `json:"conversation_id"`
	Response          string                     `json:"response"`
	Status            models.ConversationStatus  `json:"status"`
	ReadyForExecution bool                       `json:"ready_for_execution"`
	Context           models.ConversationContext `json:"context"`
}

// conversationDetail is the payload for GET /conversations/{id}.
type conversationDetail struct {
	Conversation models.Conversation        `json:"conversation"`
	Context      models.ConversationContext `json:"context"`
	Messages     []models.Message           `json:"messages"`
}

// createConversationHandler handles POST /conversations. Creation runs the
// first engine turn with no user message, so the response carries the opening
// question.
func (s *Server) createConversationHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("createConversationHandler invoked", "method", r.Method, "path", r.URL.Path)

	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("createConversationHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("createConversationHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	conversationID := util.GenerateConversationID()
	result := s.engine.ProcessTurn(r.Context(), conversationID, "", nil, nil)

	metadata, err := json.Marshal(result.Context)
	if err != nil {
		slog.Error("createConversationHandler context marshal failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create conversation"))
		return
	}

	now := time.Now().UTC()
	conv := models.Conversation{
		ID:        conversationID,
		UserID:    req.UserID,
		TenantID:  req.TenantID,
		Status:    result.Status,
		Metadata:  string(metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.st.SaveConversation(conv); err != nil {
		slog.Error("createConversationHandler save failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create conversation"))
		return
	}

	if err := s.st.AddMessage(models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        result.Response,
		CreatedAt:      now,
	}); err != nil {
		slog.Error("createConversationHandler opening message save failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create conversation"))
		return
	}

	slog.Info("Conversation created", "conversationID", conversationID, "userID", req.UserID, "tenantID", req.TenantID)
	writeJSONResponse(w, http.StatusCreated, models.Success(turnResponse{
		ConversationID:    conversationID,
		Response:          result.Response,
		Status:            result.Status,
		ReadyForExecution: result.ReadyForExecution,
		Context:           result.Context,
	}))
}

// sendMessageHandler handles POST /conversations/{id}/messages. Turns for the
// same conversation are serialized; the engine receives the persisted context
// and full transcript and the updated context is written back after the turn.
func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	slog.Debug("sendMessageHandler invoked", "conversationID", conversationID)

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("sendMessageHandler invalid JSON", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("sendMessageHandler validation failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	lock := s.lockConversation(conversationID)
	defer s.unlockConversation(conversationID, lock)

	conv, err := s.st.GetConversation(conversationID)
	if err != nil {
		slog.Error("sendMessageHandler load failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation"))
		return
	}
	if conv == nil {
		slog.Debug("sendMessageHandler conversation not found", "conversationID", conversationID)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
		return
	}

	stored, err := s.st.ListMessages(conversationID)
	if err != nil {
		slog.Error("sendMessageHandler history load failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation history"))
		return
	}
	history := toUtterances(stored)

	context := parseContext(conv.Metadata, conversationID)
	result := s.engine.ProcessTurn(r.Context(), conversationID, req.Message, history, context)

	metadata, err := json.Marshal(result.Context)
	if err != nil {
		slog.Error("sendMessageHandler context marshal failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to persist conversation"))
		return
	}
	conv.Metadata = string(metadata)
	conv.Status = result.Status
	conv.UpdatedAt = time.Now().UTC()
	if err := s.st.SaveConversation(*conv); err != nil {
		slog.Error("sendMessageHandler save failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to persist conversation"))
		return
	}

	if req.Message != "" {
		if err := s.st.AddMessage(models.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Role:           models.RoleUser,
			Content:        req.Message,
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			slog.Error("sendMessageHandler user message save failed", "error", err, "conversationID", conversationID)
		}
	}
	if err := s.st.AddMessage(models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        result.Response,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		slog.Error("sendMessageHandler assistant message save failed", "error", err, "conversationID", conversationID)
	}

	slog.Debug("sendMessageHandler turn processed", "conversationID", conversationID, "stage", result.Context.Stage, "status", result.Status)
	writeJSONResponse(w, http.StatusOK, models.Success(turnResponse{
		ConversationID:    conversationID,
		Response:          result.Response,
		Status:            result.Status,
		ReadyForExecution: result.ReadyForExecution,
		Context:           result.Context,
	}))
}

// getConversationHandler handles GET /conversations/{id}.
func (s *Server) getConversationHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	slog.Debug("getConversationHandler invoked", "conversationID", conversationID)

	conv, err := s.st.GetConversation(conversationID)
	if err != nil {
		slog.Error("getConversationHandler load failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation"))
		return
	}
	if conv == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
		return
	}

	messages, err := s.st.ListMessages(conversationID)
	if err != nil {
		slog.Error("getConversationHandler messages load failed", "error", err, "conversationID", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation messages"))
		return
	}

	context := parseContext(conv.Metadata, conversationID)
	detail := conversationDetail{Conversation: *conv, Messages: messages}
	if context != nil {
		detail.Context = *context
	}
	writeJSONResponse(w, http.StatusOK, models.Success(detail))
}

// parseContext unmarshals the persisted conversation context. Corrupt or
// missing metadata returns nil; the engine re-initializes from history.
func parseContext(metadata, conversationID string) *models.ConversationContext {
	if metadata == "" {
		return nil
	}
	var context models.ConversationContext
	if err := json.Unmarshal([]byte(metadata), &context); err != nil {
		slog.Warn("parseContext: corrupt conversation metadata, reinitializing", "error", err, "conversationID", conversationID)
		return nil
	}
	return &context
}

// toUtterances converts stored messages into the engine's history shape.
func toUtterances(messages []models.Message) []models.Utterance {
	if len(messages) == 0 {
		return nil
	}
	history := make([]models.Utterance, 0, len(messages))
	for _, m := range messages {
		history = append(history, models.Utterance{Role: m.Role, Content: m.Content, Timestamp: m.CreatedAt})
	}
	return history
}
