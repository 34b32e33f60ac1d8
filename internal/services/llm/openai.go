package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// ProviderKeyOpenAI selects the OpenAI backend.
	ProviderKeyOpenAI = "openai"
	// DefaultOpenAIModel is the default model to use.
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls.
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices.
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements Provider using the OpenAI chat completions API.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Key implements Provider.
func (p *OpenAIProvider) Key() string { return ProviderKeyOpenAI }

// Model implements Provider.
func (p *OpenAIProvider) Model() string { return p.model }

// Invoke sends the turn history to the chat completions endpoint. Content
// comes back as a single string in this SDK, so no part flattening is needed.
func (p *OpenAIProvider) Invoke(ctx context.Context, messages []Message, cfg SamplingConfig) (string, error) {
	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			openAIMessages = append(openAIMessages, openai.SystemMessage(msg.Content))
		case models.RoleAssistant:
			openAIMessages = append(openAIMessages, openai.AssistantMessage(msg.Content))
		default:
			openAIMessages = append(openAIMessages, openai.UserMessage(msg.Content))
		}
	}

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: openAIMessages,
	}
	if cfg.Temperature != nil {
		req.Temperature = openai.Float(*cfg.Temperature)
	}
	if cfg.MaxTokens != nil {
		req.MaxTokens = openai.Int(*cfg.MaxTokens)
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("provider", ProviderKeyOpenAI),
			zap.String("model", p.model),
			zap.Int("message_count", len(openAIMessages)),
		)
	}

	startTime := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(startTime)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("provider", ProviderKeyOpenAI),
				zap.String("model", p.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("provider", ProviderKeyOpenAI),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizePreview(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}
