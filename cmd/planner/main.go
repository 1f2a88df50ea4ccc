package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/plannerhq/planner/cmd/planner/commands"
)

// @title Planner API
// @version 1.0
// @description Kanban boards with cards, comments, mentions and a Teams bot.

// @contact.name Planner Support
// @contact.url https://github.com/plannerhq/planner

// @license.name MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "planner",
		Short: "Planner API server and tools",
		Long:  `Planner is a Kanban board service with card mentions delivered over Microsoft Teams.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewCardCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
