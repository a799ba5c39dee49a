// Package genai provides GenAI-enhanced operations using the OpenAI API.
//
// The client is an optional capability: every consumer must function with it
// entirely absent (nil interface) and fall back to deterministic behavior.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Default generation parameters.
const (
	// DefaultTimeout bounds every generative call; on expiry the caller
	// proceeds on its deterministic fallback tier.
	DefaultTimeout = 20 * time.Second
	// DefaultTemperature keeps phrasing natural without drifting off-instruction.
	DefaultTemperature = 0.7
	// DefaultMaxCompletionTokens caps single-turn responses.
	DefaultMaxCompletionTokens = 1024
)

// ClientInterface defines the narrow generative contract consumed by the
// intake engine. Implementations may time out or return malformed output;
// callers recover locally and never propagate these failures.
type ClientInterface interface {
	// GenerateWithMessages produces a free-text completion for the given messages.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
	// GenerateStructured produces a completion constrained to the given JSON
	// schema. The returned string is the raw model output; callers must still
	// validate that it parses, since models can emit off-schema text.
	GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]interface{}) (string, error)
}

// chatService defines the minimal interface for chat completions, kept narrow
// so tests can substitute a fake without network access.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChatService adapts the OpenAI SDK client to the chatService seam.
type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat                chatService
	model               string
	temperature         float64
	maxCompletionTokens int
	timeout             time.Duration
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key explicitly.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the default chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// NewClient initializes a new GenAI client. The API key comes from options or
// the OPENAI_API_KEY environment variable; if neither is set an error is
// returned and the caller should run in pure fallback mode.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	cli := openai.NewClient(option.WithAPIKey(apiKey))
	slog.Debug("genai.NewClient: client initialized", "model", model, "timeout", timeout)
	return &Client{
		chat:                &openaiChatService{client: cli},
		model:               model,
		temperature:         temperature,
		maxCompletionTokens: DefaultMaxCompletionTokens,
		timeout:             timeout,
	}, nil
}

// GenerateWithMessages generates a free-text response for the given messages.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            messages,
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(int64(c.maxCompletionTokens)),
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Warn("genai.GenerateWithMessages: completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStructured generates a response constrained to a JSON schema. The
// raw model output is returned; callers validate it against the schema.
func (c *Client) GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]interface{}) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(c.maxCompletionTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Warn("genai.GenerateStructured: completion failed", "error", err, "schema", schemaName)
		return "", fmt.Errorf("structured completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
