package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/job"
	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/scheduler"
	"github.com/raoulx24/rsync-backup/internal/watcher"
	"github.com/raoulx24/rsync-backup/internal/worker"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run jobs on their cron schedule",
	Long: `Run the jobs listed under schedule.jobs of the global configuration.

Each job has its own worker: a trigger arriving while the job runs is kept
and executed afterwards, further triggers coalesce with it. SIGHUP, or a
change of the configuration file when configReload.enabled is set,
reloads the schedule.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging).With("component", "daemon")

	ctx, cancel := signalContext()
	defer cancel()

	run := func(ctx context.Context, name string, action job.Action) error {
		res, err := job.Run(ctx, job.Request{ConfigPath: configPath, Name: name, Action: action}, log, job.Options{})
		if err == nil {
			log.Info("job finished", "job", name, "action", action.String(), "status", res.Status, "skipped", res.Skipped)
		}
		return err
	}

	pool := worker.NewPool(ctx, run, log)
	sched := scheduler.New(pool, log)

	if err := sched.Apply(cfg.Schedule.Jobs); err != nil {
		return err
	}
	pool.Sync(scheduler.Jobs(cfg.Schedule.Jobs))
	sched.Start()
	defer sched.Stop()
	log.Info("schedule active", "next_runs", sched.Next())

	var mu sync.Mutex
	var w *watcher.Watcher
	reload := func() {
		mu.Lock()
		defer mu.Unlock()

		next, err := config.Load(configPath)
		if err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		if err := sched.Apply(next.Schedule.Jobs); err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		pool.Sync(scheduler.Jobs(next.Schedule.Jobs))
		if w != nil {
			w.UpdateConfig(next.ConfigReload)
		}
		log.Info("config reloaded", "jobs", len(next.Schedule.Jobs), "next_runs", sched.Next())
	}

	if cfg.ConfigReload.Enabled {
		w = watcher.New(configPath, cfg.ConfigReload, log, reload)
		go func() {
			if err := w.Start(ctx); err != nil {
				log.Error("config watcher stopped", "error", err)
			}
		}()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	log.Info("daemon started", "config", configPath, "jobs", len(cfg.Schedule.Jobs))
	for {
		select {
		case <-hup:
			reload()
		case <-ctx.Done():
			log.Info("shutting down, waiting for running jobs")
			pool.Wait()
			log.Info("exit complete")
			return nil
		}
	}
}
