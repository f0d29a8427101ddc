package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ndquoc/remedy/internal/core/config"
	redisclient "github.com/ndquoc/remedy/internal/infra/redis"
)

var escalationsCmd = &cobra.Command{
	Use:   "escalations",
	Short: "List pending manual-intervention escalations",
	Run:   runEscalations,
}

var escalationsAckCmd = &cobra.Command{
	Use:   "ack <episode-id>",
	Short: "Acknowledge a handled escalation",
	Args:  cobra.ExactArgs(1),
	Run:   runEscalationsAck,
}

func init() {
	escalationsCmd.AddCommand(escalationsAckCmd)
	rootCmd.AddCommand(escalationsCmd)
}

func escalationQueue() *redisclient.EscalationQueue {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.URL == "" {
		slog.Error("No redis configured, escalation queue unavailable")
		os.Exit(1)
	}

	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return redisclient.NewEscalationQueue(client)
}

func runEscalations(cmd *cobra.Command, args []string) {
	queue := escalationQueue()

	entries, err := queue.List(context.Background())
	if err != nil {
		slog.Error("Failed to list escalations", "error", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No pending escalations")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tTIME\tSERVICE\tOPERATION\tERROR\tMESSAGE")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.ServiceName,
			e.Operation,
			e.ErrorType,
			e.ErrorMessage,
		)
	}
	_ = w.Flush()
}

func runEscalationsAck(cmd *cobra.Command, args []string) {
	queue := escalationQueue()

	if err := queue.Ack(context.Background(), args[0]); err != nil {
		slog.Error("Failed to ack escalation", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Escalation %s acknowledged\n", args[0])
}
