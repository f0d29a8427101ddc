package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ndquoc/remedy/internal/core/config"
	"github.com/ndquoc/remedy/internal/infra/storage/postgres"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recent recovery episodes",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of episodes to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Error("No database configured, nothing to show")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	entries, err := postgres.NewEpisodeRepo(db).Recent(ctx, statusLimit)
	if err != nil {
		slog.Error("Failed to query episodes", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TIME\tSERVICE\tOPERATION\tERROR\tSTRATEGY\tATTEMPTS\tOUTCOME")

	for _, e := range entries {
		outcome := "pending"
		if e.RecoverySuccess != nil {
			if *e.RecoverySuccess {
				outcome = "recovered"
			} else {
				outcome = "failed"
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.ServiceName,
			e.Operation,
			e.ErrorType,
			e.RecoveryStrategy,
			e.RecoveryAttempts,
			outcome,
		)
	}
	_ = w.Flush()
}
