package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raoulx24/rsync-backup/internal/checksum"
	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/snapshot"
)

var listCmd = &cobra.Command{
	Use:   "list <job>",
	Short: "List the snapshots of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(args[0])
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(name string) error {
	cfg, err := config.LoadJob(configPath, name)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	cat, err := snapshot.NewStore(cfg.JobRoot(), nil, cliLogger()).Scan(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLABEL\tCREATED\tCHECKSUMS")
	for _, s := range cat.List() {
		format := "-"
		if _, f, err := checksum.Locate(s.Path); err == nil {
			format = f.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name(), s.Label, s.CreatedAt.Format("2006-01-02 15:04:05"), format)
	}
	return tw.Flush()
}
