package transfer

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	ModeLocal = "local"
	ModeSSH   = "ssh"
)

// OutFormat makes rsync print one itemized line per change with the
// checksum of every transferred file.
const OutFormat = "--out-format=%i %C %n%L"

// DefaultChecksumChoice is the digest the checksum records hold. rsync 3.2
// negotiates xxh128 unless told otherwise, which %C would then print.
const DefaultChecksumChoice = "md5"

var ErrInvalidMode = errors.New("invalid transfer mode")

// Options describes where and how rsync pulls the source tree.
type Options struct {
	Path              string
	Mode              string
	SourceDir         string
	SourceHost        string
	SSHUser           string
	SSHKey            string
	RulesFile         string
	AdditionalOptions []string
	// Timeout bounds a single transfer. Zero means no deadline.
	Timeout time.Duration
	// ChecksumChoice is passed as --checksum-choice. Empty omits the
	// option, for rsync 3.1 peers where md5 is the only transfer digest.
	ChecksumChoice string
}

// Request is one invocation against a destination directory.
type Request struct {
	Dest           string
	LinkDest       string
	DeleteExcluded bool
	DryRun         bool
}

// Validate checks the preconditions that must hold before any snapshot
// directory is touched.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeLocal, ModeSSH:
	default:
		return fmt.Errorf("%w: %q is not a valid value for mode", ErrInvalidMode, o.Mode)
	}

	if o.RulesFile == "" {
		return errors.New("no rules file configured")
	}
	info, err := os.Stat(o.RulesFile)
	if err != nil {
		return fmt.Errorf("%s does not exist: %w", o.RulesFile, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", o.RulesFile)
	}
	return nil
}

func (o Options) source() (string, error) {
	switch o.Mode {
	case ModeLocal:
		return o.SourceDir, nil
	case ModeSSH:
		return fmt.Sprintf("%s@%s:%s", o.SSHUser, o.SourceHost, o.SourceDir), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, o.Mode)
	}
}

// Command returns the argv of the rsync invocation for req.
func (o Options) Command(req Request) ([]string, error) {
	source, err := o.source()
	if err != nil {
		return nil, err
	}

	bin := o.Path
	if bin == "" {
		bin = "rsync"
	}

	argv := []string{bin, "-avihh", "--stats", OutFormat}
	if o.ChecksumChoice != "" {
		argv = append(argv, "--checksum-choice="+o.ChecksumChoice)
	}
	argv = append(argv, o.AdditionalOptions...)

	if req.DryRun {
		argv = append(argv, "-n")
	}
	if o.Mode == ModeSSH {
		argv = append(argv, "-e", "ssh -i "+o.SSHKey)
	}

	argv = append(argv, "-f", "merge "+o.RulesFile)

	if req.LinkDest != "" {
		argv = append(argv, "--link-dest="+req.LinkDest)
	}
	if req.DeleteExcluded {
		argv = append(argv, "--delete-excluded")
	}

	return append(argv, source, req.Dest), nil
}
