package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/dashclient/internal/pipeline/health"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the queue and error status of a running dashclient",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "diagnostics server address (default http://localhost:<server.port>)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	addr := statusAddr
	if addr == "" {
		addr = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/status")
	if err != nil {
		slog.Error("Failed to reach diagnostics server", "addr", addr, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.Error("Failed to decode status", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tONLINE\tQUEUED\tMAX\tDRAINING\tERRORS")
	_, _ = fmt.Fprintf(w, "%s\t%t\t%d\t%d\t%t\t%d\n",
		report.Status,
		report.Queue.IsOnline,
		report.Queue.QueueLength,
		report.Queue.MaxQueueSize,
		report.Queue.IsProcessingQueue,
		report.StoredErrors,
	)
	_ = w.Flush()

	if t := report.Transport; t != nil {
		fmt.Printf("\nrequests=%d failures=%d throttled=%d avg_latency=%s\n",
			t.Requests, t.Failures, t.Throttled, t.AverageLatency)
	}
}
