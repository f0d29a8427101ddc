package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ndquoc/remedy/internal/core/config"
	"github.com/ndquoc/remedy/internal/infra/storage/postgres"
	"github.com/ndquoc/remedy/internal/orchestrator"
)

var (
	reportHours int
	reportJSON  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export an aggregated error report from the audit log",
	Run:   runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportHours, "hours", 24, "trailing window in hours")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the full report as JSON")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Error("No database configured, nothing to report")
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

	engine := orchestrator.New(postgres.NewEpisodeRepo(db))
	report, err := engine.ExportReport(ctx, reportHours)
	if err != nil {
		slog.Error("Failed to export report", "error", err)
		os.Exit(1)
	}

	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return
	}

	fmt.Printf("Episodes in last %dh: %d\n\n", report.WindowHours, report.TotalEpisodes)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SERVICE\tOPERATION\tERROR\tSTRATEGY\tEPISODES\tRECOVERED")

	for _, g := range report.Groups {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			g.ServiceName,
			g.Operation,
			g.ErrorType,
			g.RecoveryStrategy,
			g.Count,
			g.Recovered,
		)
	}
	_ = w.Flush()
}
