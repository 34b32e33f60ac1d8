package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/nestling-app/nestling-api/internal/config"
	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/services/llm"
	"github.com/nestling-app/nestling-api/internal/tracing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var provider string
	var message string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test a model provider",
		Long:  "Send a short prompt to a configured model provider and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if provider == "" {
				provider = cfg.DefaultProvider
			}

			logger := zap.NewNop()
			router := llm.NewRouter(cfg.DefaultProvider, tracing.NopReporter{}, logger)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if cfg.OpenAIKey != "" {
				router.Register(llm.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger, false))
			}
			if cfg.AnthropicKey != "" {
				router.Register(llm.NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel, logger, false))
			}
			if cfg.GoogleKey != "" {
				google, err := llm.NewGoogleProvider(ctx, cfg.GoogleKey, cfg.GoogleModel, logger, false)
				if err != nil {
					return fmt.Errorf("failed to create google provider: %w", err)
				}
				router.Register(google)
			}

			fmt.Printf("Testing provider: %s\n", provider)

			reply, err := router.Invoke(ctx, provider, []llm.Message{
				{Role: models.RoleUser, Content: message},
			}, llm.SamplingConfig{Temperature: llm.Float64(1.0)})
			if err != nil {
				return fmt.Errorf("provider invocation failed: %w", err)
			}

			fmt.Println("✓ Provider responded")
			fmt.Printf("\n%s\n", reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider key to test (defaults to DEFAULT_PROVIDER)")
	cmd.Flags().StringVar(&message, "message", "Reply with a single short sentence.", "Prompt to send")
	return cmd
}
