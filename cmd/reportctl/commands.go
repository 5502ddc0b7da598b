package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"finreports/internal/repository"
	"finreports/internal/service"

	"github.com/spf13/cobra"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one pass over due scheduled reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, services, err := connect()
			if err != nil {
				return err
			}
			res, err := services.Scanner.ScanOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func recoverCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Fail reports stuck in GENERATING",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, services, err := connect()
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				olderThan = state.cfg.Scheduler.StaleAfter
			}
			n, err := services.Lifecycle.RecoverStale(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Printf("recovered %d report(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "GENERATING age that counts as stale (default REPORTS_SCHEDULER_STALE_AFTER)")
	return cmd
}

func dueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List scheduled reports whose next generation has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := connect()
			if err != nil {
				return err
			}
			due, err := repository.NewReportRepository(db).FindDue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tNEXT GENERATION")
			for _, r := range due {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Status, r.NextGeneration.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <report-id>",
		Short: "Generate a report now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, services, err := connect()
			if err != nil {
				return err
			}
			res, err := services.Lifecycle.Generate(cmd.Context(), args[0], actor())
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func statusCmd() *cobra.Command {
	var req service.StatusUpdateRequest
	cmd := &cobra.Command{
		Use:   "status <report-id> <STATUS>",
		Short: "Override a report's status",
		Long: `Override a report's status within the allowed transitions.
Moving a report to COMPLETED requires --file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, services, err := connect()
			if err != nil {
				return err
			}
			req.Status = args[1]
			if req.FilePath != "" && req.FileSize == 0 {
				if info, err := os.Stat(req.FilePath); err == nil {
					req.FileSize = info.Size()
				}
			}
			res, err := services.Lifecycle.UpdateStatus(cmd.Context(), args[0], actor(), req)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&req.FilePath, "file", "", "artifact path for COMPLETED")
	cmd.Flags().Int64Var(&req.FileSize, "size", 0, "artifact size in bytes (default: size on disk)")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a report and its parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, services, err := connect()
			if err != nil {
				return err
			}
			if err := services.Reports.DeleteReport(cmd.Context(), args[0], actor()); err != nil {
				return err
			}
			fmt.Printf("deleted report %s\n", args[0])
			return nil
		},
	}
}
