package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/nestling-app/nestling-api/internal/config"
	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewListCmd creates the list command, dumping all database-stored runtime
// settings as YAML.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all runtime configuration",
		Long:  "Dump CORS and rate limit settings stored in the database as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			ctx := context.Background()

			type corsOut struct {
				AllowedOrigins   string `yaml:"allowed_origins"`
				AllowCredentials bool   `yaml:"allow_credentials"`
				MaxAge           int    `yaml:"max_age"`
			}
			type out struct {
				Cors      *corsOut `yaml:"cors"`
				Ratelimit *string  `yaml:"ratelimit"`
			}

			var dump out

			corsRepo := database.NewCorsConfigRepository(db)
			corsCfg, err := corsRepo.Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to get cors config: %w", err)
			}
			if corsCfg != nil {
				dump.Cors = &corsOut{
					AllowedOrigins:   corsCfg.AllowedOrigins,
					AllowCredentials: corsCfg.AllowCredentials,
					MaxAge:           corsCfg.MaxAge,
				}
			}

			ratelimitRepo := database.NewRatelimitConfigRepository(db)
			ratelimitCfg, err := ratelimitRepo.Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to get ratelimit config: %w", err)
			}
			if ratelimitCfg != nil {
				dump.Ratelimit = &ratelimitCfg.Rate
			}

			encoded, err := yaml.Marshal(&dump)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			fmt.Print(string(encoded))
			return nil
		},
	}

	return cmd
}
