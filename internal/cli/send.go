package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/dashclient/internal/control"
	"github.com/vietddude/dashclient/internal/core/domain"
)

var (
	sendMethod string
	sendData   string
	sendQuery  []string
	sendLabel  string
)

var sendCmd = &cobra.Command{
	Use:   "send <path>",
	Short: "Send one request through the pipeline and print the result",
	Args:  cobra.ExactArgs(1),
	Run:   runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendMethod, "method", "X", http.MethodGet, "HTTP method")
	sendCmd.Flags().StringVarP(&sendData, "data", "d", "", "JSON request body")
	sendCmd.Flags().StringArrayVarP(&sendQuery, "query", "q", nil, "query parameter key=value (repeatable)")
	sendCmd.Flags().StringVar(&sendLabel, "label", "cli.send", "component/action label used in error context")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	req, err := buildRequest(args[0])
	if err != nil {
		slog.Error("Invalid request", "error", err)
		os.Exit(2)
	}

	app, err := control.NewApp(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	go func() { _ = app.Monitor.Run(ctx) }()

	result := app.Dispatcher.Send(ctx, req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)

	if !result.Success {
		printActions(result.Processed)
		app.Close()
		os.Exit(1)
	}
}

func buildRequest(path string) (domain.Request, error) {
	req := domain.Request{
		Method: strings.ToUpper(sendMethod),
		Path:   path,
		Label:  sendLabel,
	}
	if sendData != "" {
		if !json.Valid([]byte(sendData)) {
			return req, fmt.Errorf("--data is not valid JSON")
		}
		req.Body = json.RawMessage(sendData)
	}
	if len(sendQuery) > 0 {
		req.Query = url.Values{}
		for _, kv := range sendQuery {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return req, fmt.Errorf("query %q is not key=value", kv)
			}
			req.Query.Add(k, v)
		}
	}
	return req, nil
}

func printActions(perr *domain.ProcessedError) {
	if perr == nil || len(perr.RecoveryActions) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\n%s (%s, %s)\n", perr.UserMessage, perr.Type, perr.Severity)
	for _, a := range perr.RecoveryActions {
		marker := " "
		if a.Primary {
			marker = "*"
		}
		fmt.Fprintf(os.Stderr, " %s %-16s %s\n", marker, a.Type, a.Description)
	}
}
