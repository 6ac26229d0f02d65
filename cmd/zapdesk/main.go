package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapdesk/zapdesk/internal/auth"
	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/db"
	"github.com/zapdesk/zapdesk/internal/logger"
	"github.com/zapdesk/zapdesk/internal/users"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "zapdesk",
	Short: "WhatsApp assistant relay",
	Long:  "zapdesk relays WhatsApp messages to an LLM assistant backend, handling onboarding, voice notes, and tool-augmented conversations.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := db.Migrate(cfg.Postgres); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <profile-id|phone-number>",
	Short: "Mint an API token for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
		if err != nil {
			return fmt.Errorf("parse jwt_expires_in: %w", err)
		}

		profileID := args[0]
		if isPhoneNumber(profileID) {
			profileID, err = resolvePhone(cmd.Context(), cfg, profileID)
			if err != nil {
				return err
			}
		}

		signed, expiresAt, err := auth.GenerateToken(profileID, cfg.Auth.JWTSecret, expiresIn)
		if err != nil {
			return err
		}
		fmt.Printf("%s\nexpires: %s\n", signed, expiresAt.Format(time.RFC3339))
		return nil
	},
}

func isPhoneNumber(s string) bool {
	for i, r := range s {
		if r == '+' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func resolvePhone(ctx context.Context, cfg config.Config, phone string) (string, error) {
	conn, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return "", fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close()

	user, err := users.NewService(logger.L, conn).GetByPhone(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("resolve phone %s: %w", phone, err)
	}
	return user.ProfileID, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
