package icp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/leadpilot/icpflow/internal/genai"
	"github.com/leadpilot/icpflow/internal/models"
)

// responderHistoryLimit bounds how much trailing history is sent for phrasing.
const responderHistoryLimit = 6

// ResponseGenerator turns a target stage plus context into an outbound
// natural-language message. Two tiers: generative phrasing when a client is
// available, and a fixed template per (stage, missing-field) pair otherwise.
// Generate never fails; the template tier is exhaustive over reachable pairs.
type ResponseGenerator struct {
	client genai.ClientInterface
}

// NewResponseGenerator creates a response generator. A nil client means pure
// template mode.
func NewResponseGenerator(client genai.ClientInterface) *ResponseGenerator {
	return &ResponseGenerator{client: client}
}

// Generate produces the assistant reply for the given stage and open field.
func (g *ResponseGenerator) Generate(ctx context.Context, stage models.Stage, field fieldKey, conv models.ConversationContext, message string, history []models.Utterance, questionType QuestionType) string {
	fallback := fallbackTemplate(stage, field, questionType, conv)
	if g.client == nil {
		return fallback
	}

	instruction := g.buildInstruction(stage, field, questionType, conv)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(instruction),
	}
	for _, u := range tailUtterances(history, responderHistoryLimit) {
		switch u.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(u.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(u.Content))
		}
	}
	if strings.TrimSpace(message) != "" {
		messages = append(messages, openai.UserMessage(message))
	}

	response, err := g.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Warn("ResponseGenerator.Generate: generative tier failed, using template", "stage", stage, "field", field, "error", err)
		return fallback
	}

	sanitized := sanitizeResponse(response)
	if sanitized == "" {
		slog.Warn("ResponseGenerator.Generate: generative tier returned empty output, using template", "stage", stage, "field", field)
		return fallback
	}
	return sanitized
}

// buildInstruction derives the phrasing instruction for the generative tier.
// It embeds the deterministic context summary so the model never re-asks a
// question whose field is already collected.
func (g *ResponseGenerator) buildInstruction(stage models.Stage, field fieldKey, questionType QuestionType, conv models.ConversationContext) string {
	var b strings.Builder
	b.WriteString("You are a friendly sales-campaign setup assistant collecting an ideal customer profile. ")
	b.WriteString("Write ONE short conversational message (1-3 sentences, no markdown, no lists unless offering options). ")
	b.WriteString("Never repeat a question about details already collected.\n\n")
	b.WriteString("Details collected so far:\n")
	b.WriteString(Summarize(conv))
	b.WriteString("\n\nYour task: ")

	switch questionType {
	case QuestionClarification:
		b.WriteString("The user's last answer did not answer the open question. Gently re-ask: ")
	case QuestionEdit:
		b.WriteString("The user said the summary is not correct. Ask what they would like to change: ")
	default:
		b.WriteString("Ask the next question: ")
	}
	b.WriteString(fallbackTemplate(stage, field, QuestionFresh, conv))
	return b.String()
}

// sanitizeResponse strips code fences, markdown emphasis, and surrounding
// quotes from model output before it is sent to the user.
func sanitizeResponse(response string) string {
	s := strings.TrimSpace(response)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a language tag on the opening fence.
		if idx := strings.Index(s, "\n"); idx >= 0 && !strings.ContainsAny(s[:idx], " \t") && len(s[:idx]) <= 16 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}

	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}

// tailUtterances returns the last n utterances.
func tailUtterances(history []models.Utterance, n int) []models.Utterance {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// formatHistoryForPrompt renders trailing history as plain text for prompts
// that need it inline rather than as chat messages.
func formatHistoryForPrompt(history []models.Utterance, n int) string {
	tail := tailUtterances(history, n)
	if len(tail) == 0 {
		return "(no prior messages)"
	}
	var lines []string
	for _, u := range tail {
		lines = append(lines, fmt.Sprintf("%s: %s", u.Role, u.Content))
	}
	return strings.Join(lines, "\n")
}
