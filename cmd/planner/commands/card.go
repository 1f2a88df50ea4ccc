package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plannerhq/planner/pkg/client"
)

// NewCardCommand creates the card command, which talks to a running server.
func NewCardCommand() *cobra.Command {
	cardCmd := &cobra.Command{
		Use:   "card",
		Short: "Card commands against a running Planner API",
	}

	moveCmd := &cobra.Command{
		Use:   "move",
		Short: "Move a card to a column and position",
		Example: `  planner card move --url http://localhost:8080/api --email ana@example.com \
    --password secret --card <card-id> --column <column-id> --position 0`,
		RunE: runCardMove,
	}

	moveCmd.Flags().String("url", "http://localhost:8080/api", "API base URL")
	moveCmd.Flags().String("token", "", "Access token (skips login)")
	moveCmd.Flags().String("email", "", "Login email")
	moveCmd.Flags().String("password", "", "Login password")
	moveCmd.Flags().String("card", "", "Card ID (required)")
	moveCmd.Flags().String("column", "", "Target column ID (required)")
	moveCmd.Flags().Int("position", 0, "Target position; out of range values are clamped")
	moveCmd.Flags().Duration("timeout", 15*time.Second, "Request timeout")
	_ = moveCmd.MarkFlagRequired("card")
	_ = moveCmd.MarkFlagRequired("column")

	cardCmd.AddCommand(moveCmd)
	return cardCmd
}

func runCardMove(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	baseURL, _ := flags.GetString("url")
	token, _ := flags.GetString("token")
	email, _ := flags.GetString("email")
	password, _ := flags.GetString("password")
	cardFlag, _ := flags.GetString("card")
	columnFlag, _ := flags.GetString("column")
	position, _ := flags.GetInt("position")
	timeout, _ := flags.GetDuration("timeout")

	cardID, err := uuid.Parse(cardFlag)
	if err != nil {
		return fmt.Errorf("invalid --card: %w", err)
	}
	columnID, err := uuid.Parse(columnFlag)
	if err != nil {
		return fmt.Errorf("invalid --column: %w", err)
	}
	if token == "" && (email == "" || password == "") {
		return errors.New("either --token or --email and --password are required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c := client.New(baseURL, client.WithToken(token))
	if token == "" {
		if _, err := c.Login(ctx, email, password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	if err := c.MoveCard(ctx, cardID, columnID, position); err != nil {
		return fmt.Errorf("move card: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Card %s moved to column %s at position %d\n", cardID, columnID, position)
	return nil
}
