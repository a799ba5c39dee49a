package genai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openai/openai-go"
)

// mockChatService returns a canned response.
type mockChatService struct {
	content string
	err     error
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	if m.err != nil {
		return openai.ChatCompletion{}, m.err
	}
	return openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: m.content}}}}, nil
}

func TestGenerateWithMessages_Success(t *testing.T) {
	client := &Client{chat: &mockChatService{content: "Hello user"}, model: "test-model", temperature: 0.1, maxCompletionTokens: 100, timeout: time.Second}
	resp, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "Hello user" {
		t.Fatalf("expected canned content, got %q", resp)
	}
}

func TestGenerateWithMessages_Error(t *testing.T) {
	client := &Client{chat: &mockChatService{err: fmt.Errorf("upstream unavailable")}, model: "test-model", temperature: 0.1, maxCompletionTokens: 100, timeout: time.Second}
	_, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")})
	if err == nil {
		t.Fatal("expected error when upstream fails")
	}
}

func TestGenerateWithMessages_NoChoices(t *testing.T) {
	client := &Client{chat: &emptyChoicesService{}, model: "test-model", temperature: 0.1, maxCompletionTokens: 100, timeout: time.Second}
	_, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")})
	if err == nil {
		t.Fatal("expected error when no choices returned")
	}
}

type emptyChoicesService struct{}

func (e *emptyChoicesService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	return openai.ChatCompletion{}, nil
}

func TestGenerateStructured_ReturnsRawOutput(t *testing.T) {
	client := &Client{chat: &mockChatService{content: `{"outreachType": "outbound"}`}, model: "test-model", temperature: 0.1, maxCompletionTokens: 100, timeout: time.Second}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"outreachType": map[string]interface{}{"type": "string"}},
	}
	resp, err := client.GenerateStructured(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}, "icp_extraction", schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != `{"outreachType": "outbound"}` {
		t.Fatalf("expected raw model output, got %q", resp)
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error when OPENAI_API_KEY not set")
	}
}
