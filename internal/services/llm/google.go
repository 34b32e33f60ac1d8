package llm

import (
	"context"
	"errors"
	"time"

	"github.com/nestling-app/nestling-api/internal/models"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// ProviderKeyGoogle selects the Google Gemini backend.
	ProviderKeyGoogle = "google"
	// DefaultGoogleModel is the default model to use.
	DefaultGoogleModel = "gemini-1.5-flash"
)

// GoogleProvider implements Provider using the Gemini generateContent API.
type GoogleProvider struct {
	client    *genai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewGoogleProvider creates a new Google provider. Client construction only
// validates configuration; no network call is made until Invoke.
func NewGoogleProvider(ctx context.Context, apiKey, model string, logger *zap.Logger, debugMode bool) (*GoogleProvider, error) {
	if model == "" {
		model = DefaultGoogleModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &GoogleProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}, nil
}

// Key implements Provider.
func (p *GoogleProvider) Key() string { return ProviderKeyGoogle }

// Model implements Provider.
func (p *GoogleProvider) Model() string { return p.model }

// Invoke sends the turn history to generateContent. System messages go into
// the system instruction; assistant turns map to the "model" role. Candidate
// content arrives as an ordered part list and is flattened with single
// spaces.
func (p *GoogleProvider) Invoke(ctx context.Context, messages []Message, cfg SamplingConfig) (string, error) {
	config := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: msg.Content}},
			}
		case models.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	if cfg.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*cfg.Temperature))
	}
	if cfg.MaxTokens != nil {
		config.MaxOutputTokens = int32(*cfg.MaxTokens)
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("provider", ProviderKeyGoogle),
			zap.String("model", p.model),
			zap.Int("message_count", len(contents)),
		)
	}

	startTime := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	latency := time.Since(startTime)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("provider", ProviderKeyGoogle),
				zap.String("model", p.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in response")
	}

	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	content := FlattenParts(parts)

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("provider", ProviderKeyGoogle),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizePreview(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}
