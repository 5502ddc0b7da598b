// Command reportctl is the operator tool for the report service: one-shot scans,
// manual generation, status overrides and deletion against the service database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"finreports/internal/app"
	"finreports/internal/config"
	"finreports/internal/database"
	"finreports/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:               "reportctl",
	Short:             "Operate the financial report service",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// state is filled by initConfig before any command runs.
var state struct {
	cfg    config.Config
	logger zerolog.Logger
}

func init() {
	rootCmd.PersistentFlags().String("actor", "operator", "identity recorded on changes")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().Int("workers", 0, "concurrent generations during scan (default from REPORTS_SCHEDULER_WORKERS)")

	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(recoverCmd())
	rootCmd.AddCommand(dueCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(deleteCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	viper.SetEnvPrefix("REPORTCTL")
	viper.AutomaticEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Log.Level = viper.GetString("log.level")
	cfg.Log.Format = viper.GetString("log.format")
	if workers := viper.GetInt("workers"); workers > 0 {
		cfg.Scheduler.Workers = workers
	}

	state.cfg = cfg
	state.logger = logging.NewWithWriter(cfg.Log, os.Stderr)
	cmd.SetContext(state.logger.WithContext(cmd.Context()))
	return nil
}

func actor() string {
	return viper.GetString("actor")
}

func connect() (*gorm.DB, *app.Services, error) {
	db, err := database.NewConnection(state.cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, app.New(state.cfg, db, nil, nil), nil
}
