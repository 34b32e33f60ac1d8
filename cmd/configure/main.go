package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/nestling-app/nestling-api/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	var rootCmd = &cobra.Command{
		Use:   "nestling-configure",
		Short: "Configuration tool for the Nestling API",
		Long:  "CLI tool for managing database-stored runtime settings and testing model providers",
	}

	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
