package transfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ExitError reports a transfer that finished with a non-zero exit code.
// The incomplete snapshot is left on disk for the next run to resume.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("rsync returned non-zero exit code [ %d ]", e.Code)
}

// Runner executes the transfer tool and hands every output line to onLine
// as it arrives.
type Runner interface {
	Run(ctx context.Context, argv []string, onLine func(string)) error
}

// ExecRunner runs the transfer tool as a subprocess, stdout and stderr merged.
type ExecRunner struct {
	// WaitDelay bounds how long Run waits for output after the process was
	// killed by a cancelled context.
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, argv []string, onLine func(string)) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 10 * time.Second
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", argv[0], err)
	}

	rd := bufio.NewReaderSize(stdout, 64*1024)
	for {
		line, readErr := rd.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			onLine(line)
		}
		if readErr != nil {
			break
		}
	}

	err = cmd.Wait()
	if ctx.Err() != nil {
		return fmt.Errorf("transfer interrupted: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return err
}
