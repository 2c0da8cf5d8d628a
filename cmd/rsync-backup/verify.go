package main

import (
	"github.com/spf13/cobra"

	"github.com/raoulx24/rsync-backup/internal/job"
	"github.com/raoulx24/rsync-backup/internal/session"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <job> [snapshot]",
	Short: "Check a snapshot against its checksum record",
	Long: `Re-hash every file of a snapshot and compare it with the checksum
record written when the snapshot was taken.

Without a snapshot name the latest complete snapshot is verified and the
verification marker used by scheduled verification is updated.

Examples:
  rsync-backup verify www
  rsync-backup verify www daily_2024-03-15-030000`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := session.Latest
		if len(args) == 2 {
			name = args[1]
		}
		return runOnce(job.Request{Name: args[0], Action: job.Verify, Snapshot: name})
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
