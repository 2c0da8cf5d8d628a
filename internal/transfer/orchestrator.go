// Package transfer drives rsync into a new snapshot directory.
//
// A run moves through these states:
//
//	Fresh / Resuming -> Transferring -> Completed | Failed
//
// Resuming reuses the most recent incomplete snapshot left by a crashed
// run. A failed transfer leaves its incomplete snapshot in place.
package transfer

import (
	"context"
	"fmt"

	"github.com/raoulx24/rsync-backup/internal/checksum"
	"github.com/raoulx24/rsync-backup/internal/fs"
	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/snapshot"
)

type State int

const (
	Fresh State = iota
	Resuming
	Transferring
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Resuming:
		return "resuming"
	case Transferring:
		return "transferring"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome describes what a transfer did.
type Outcome struct {
	State    State
	Target   snapshot.Snapshot
	Resumed  bool
	LinkBase *snapshot.Snapshot
	Argv     []string
	// Changed holds the checksums rsync reported for the files it wrote.
	Changed []checksum.Entry
	// Lines counts output lines consumed.
	Lines int
}

type Orchestrator struct {
	opts   Options
	runner Runner
	fs     fs.FS
	log    logging.Logger
}

func NewOrchestrator(opts Options, runner Runner, filesystem fs.FS, log logging.Logger) *Orchestrator {
	if runner == nil {
		runner = ExecRunner{}
	}
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Orchestrator{opts: opts, runner: runner, fs: filesystem, log: log}
}

// Run transfers the source into target, an incomplete snapshot. cat is
// updated to reflect the consumed incomplete snapshot and the new target.
func (o *Orchestrator) Run(ctx context.Context, cat *snapshot.Catalog, target snapshot.Snapshot, dryRun bool) (*Outcome, error) {
	out := &Outcome{State: Fresh, Target: target}

	if latest, ok := cat.Latest(); ok {
		out.LinkBase = &latest
	}

	req := Request{Dest: target.ContentRoot(), DryRun: dryRun}
	if out.LinkBase != nil {
		req.LinkDest = out.LinkBase.ContentRoot()
	}

	if err := o.prepare(ctx, cat, out, &req, dryRun); err != nil {
		out.State = Failed
		return out, err
	}

	argv, err := o.opts.Command(req)
	if err != nil {
		out.State = Failed
		return out, err
	}
	out.Argv = argv

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	out.State = Transferring
	o.log.Info("starting transfer", "dest", req.Dest, "link_dest", req.LinkDest, "resumed", out.Resumed, "command", argv)

	err = o.runner.Run(ctx, argv, func(line string) {
		out.Lines++
		o.log.Info(line, "source", "rsync")
		if ev, ok := ParseLine(line); ok {
			out.Changed = append(out.Changed, ev.Entry())
		}
	})
	if err != nil {
		out.State = Failed
		return out, err
	}

	out.State = Completed
	o.log.Info("transfer completed", "changed_files", len(out.Changed))
	return out, nil
}

// prepare resumes the most recent incomplete snapshot into target, or
// creates an empty target. Stale content excluded since the crash is
// removed by asking rsync to delete excluded files.
func (o *Orchestrator) prepare(ctx context.Context, cat *snapshot.Catalog, out *Outcome, req *Request, dryRun bool) error {
	for _, s := range cat.Stale() {
		o.log.Warn("ignoring older incomplete snapshot", "path", s.Path)
	}

	if inc, ok := cat.Incomplete(); ok {
		out.State = Resuming
		out.Resumed = true
		req.DeleteExcluded = true

		o.log.Info("incomplete backup found, resuming", "path", inc.Path, "target", out.Target.Path)
		if err := o.fs.Rename(ctx, inc.Path, out.Target.Path); err != nil {
			return fmt.Errorf("resuming %s: %w", inc.Path, err)
		}
		cat.Replace(inc.Path, out.Target)
		return nil
	}

	if dryRun {
		return nil
	}

	if err := o.fs.MkdirAll(out.Target.ContentRoot()); err != nil {
		return fmt.Errorf("creating %s: %w", out.Target.ContentRoot(), err)
	}
	cat.Add(out.Target)
	return nil
}
