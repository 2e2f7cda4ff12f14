package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/dashclient/internal/control"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the API token in the configured credential store",
	Run:   runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API token",
	Run:   runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "API token (defaults to $DASHCLIENT_TOKEN)")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	token := strings.TrimSpace(loginToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("DASHCLIENT_TOKEN"))
	}
	if token == "" {
		slog.Error("No token given, use --token or DASHCLIENT_TOKEN")
		os.Exit(2)
	}

	store, closeFn, err := control.OpenCredentials(cfg)
	if err != nil {
		slog.Error("Failed to open credential store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = closeFn()
	}()

	if err := store.Set(context.Background(), token); err != nil {
		slog.Error("Failed to store token", "error", err)
		os.Exit(1)
	}
	slog.Info("Token stored", "store", cfg.Credentials.Store)
}

func runLogout(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	store, closeFn, err := control.OpenCredentials(cfg)
	if err != nil {
		slog.Error("Failed to open credential store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = closeFn()
	}()

	if err := store.Clear(context.Background()); err != nil {
		slog.Error("Failed to clear token", "error", err)
		os.Exit(1)
	}
	slog.Info("Token removed", "store", cfg.Credentials.Store)
}
