package llm

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/nestling-app/nestling-api/internal/models"
	"go.uber.org/zap"
)

const (
	// ProviderKeyAnthropic selects the Anthropic backend.
	ProviderKeyAnthropic = "anthropic"
	// DefaultAnthropicModel is the default model to use.
	DefaultAnthropicModel = "claude-3-5-sonnet-20240620"
	// DefaultAnthropicMaxTokens is used when the caller does not set a max
	// token budget; the Anthropic API requires one.
	DefaultAnthropicMaxTokens = 1024
)

// AnthropicProvider implements Provider using the Anthropic messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, logger *zap.Logger, debugMode bool) *AnthropicProvider {
	if model == "" {
		model = DefaultAnthropicModel
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Key implements Provider.
func (p *AnthropicProvider) Key() string { return ProviderKeyAnthropic }

// Model implements Provider.
func (p *AnthropicProvider) Model() string { return p.model }

// Invoke sends the turn history to the messages endpoint. System messages
// become the system parameter since the API does not accept them in the turn
// list; response content arrives as an ordered block list and is flattened
// with single spaces.
func (p *AnthropicProvider) Invoke(ctx context.Context, messages []Message, cfg SamplingConfig) (string, error) {
	var system []anthropic.TextBlockParam
	turns := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case models.RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	maxTokens := int64(DefaultAnthropicMaxTokens)
	if cfg.MaxTokens != nil {
		maxTokens = *cfg.MaxTokens
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		System:    system,
		Messages:  turns,
	}
	if cfg.Temperature != nil {
		req.Temperature = anthropic.Float(*cfg.Temperature)
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("provider", ProviderKeyAnthropic),
			zap.String("model", p.model),
			zap.Int("message_count", len(turns)),
		)
	}

	startTime := time.Now()
	resp, err := p.client.Messages.New(ctx, req)
	latency := time.Since(startTime)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("provider", ProviderKeyAnthropic),
				zap.String("model", p.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", err
	}

	if len(resp.Content) == 0 {
		return "", errors.New("no content blocks in response")
	}

	parts := make([]string, 0, len(resp.Content))
	for _, block := range resp.Content {
		if text := block.AsText().Text; text != "" {
			parts = append(parts, text)
		}
	}
	content := FlattenParts(parts)

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("provider", ProviderKeyAnthropic),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizePreview(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}
