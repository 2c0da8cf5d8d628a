package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/job"
	"github.com/raoulx24/rsync-backup/internal/logging"
)

var (
	configPath string
	logLevel   string
)

// errRunFailed makes the process exit 1 after a run that reported a
// failure status; the status itself is already logged and mailed.
var errRunFailed = errors.New("run failed")

var rootCmd = &cobra.Command{
	Use:   "rsync-backup",
	Short: "Incremental hard-link snapshot backups with rsync",
	Long: `rsync-backup copies a source tree with rsync into dated snapshot
directories, hard-linking unchanged files against the previous snapshot.

Every snapshot carries an md5 checksum record used for later verification.
Daily, monthly and yearly snapshots are kept according to retention counts.

Commands:
  backup    Take a snapshot of a job
  verify    Check a snapshot against its checksum record
  list      List the snapshots of a job
  daemon    Run jobs on their cron schedule`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "global configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "console log level before the job configuration is loaded")
}

// cliLogger is used for messages outside a job's run log.
func cliLogger() logging.Logger {
	return logging.New(logging.Config{Level: logLevel, Format: "console"})
}

// signalContext is cancelled on SIGINT and SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runOnce executes a single job action and maps its outcome to an exit error.
func runOnce(req job.Request) error {
	ctx, cancel := signalContext()
	defer cancel()

	req.ConfigPath = configPath
	res, err := job.Run(ctx, req, cliLogger(), job.Options{})
	if err != nil {
		if res.RunID == "" {
			return err
		}
		return errRunFailed
	}
	if !res.OK {
		return errRunFailed
	}
	return nil
}
