package main

import (
	"github.com/spf13/cobra"

	"github.com/raoulx24/rsync-backup/internal/job"
)

var backupDryRun bool

var backupCmd = &cobra.Command{
	Use:   "backup <job>",
	Short: "Take a snapshot of a job",
	Long: `Take a snapshot of the job configured in conf.d/<job>.yaml.

An incomplete snapshot left by an interrupted run is resumed. After the
transfer the checksum record is written, the snapshot is named daily (or
custom when today's daily exists), monthly and yearly snapshots are
derived, and expired snapshots and logs are removed.

Examples:
  rsync-backup backup www
  rsync-backup backup www --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(job.Request{Name: args[0], Action: job.Backup, DryRun: backupDryRun})
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().BoolVarP(&backupDryRun, "dry-run", "n", false, "run rsync with -n and change nothing on disk")
}
