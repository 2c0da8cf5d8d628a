package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/raoulx24/rsync-backup/internal/retention"
	"github.com/raoulx24/rsync-backup/internal/transfer"
)

var ErrInvalid = errors.New("invalid configuration")

// Validate reports configuration and precondition errors of a job.
func (c *Config) Validate() error {
	if c.General.BackupRoot == "" {
		return fmt.Errorf("%w: general.backupRoot is empty", ErrInvalid)
	}
	if c.General.Label == "" || strings.ContainsAny(c.General.Label, `/\`) {
		return fmt.Errorf("%w: general.label %q", ErrInvalid, c.General.Label)
	}
	if _, err := c.UmaskValue(); err != nil {
		return err
	}
	if err := c.TransferOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// UmaskValue parses general.umask as an octal mode.
func (c *Config) UmaskValue() (int, error) {
	v, err := strconv.ParseUint(c.General.Umask, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: general.umask %q is not octal", ErrInvalid, c.General.Umask)
	}
	return int(v), nil
}

// JobRoot is <backupRoot>/<label>.
func (c *Config) JobRoot() string {
	return filepath.Join(c.General.BackupRoot, c.General.Label)
}

// PidFile is the lock file guarding the job.
func (c *Config) PidFile() string {
	return filepath.Join(c.General.PidDir, "backup-"+c.General.Label+".pid")
}

// Policies returns the retention policies of the daily, monthly and yearly intervals.
func (c *Config) Policies() []retention.Policy {
	return retention.Policies(c.Retention.Daily, c.Retention.Monthly, c.Retention.Yearly)
}

// TransferOptions maps the rsync section onto the transfer options.
func (c *Config) TransferOptions() transfer.Options {
	return transfer.Options{
		Path:              c.Rsync.Pathname,
		Mode:              c.Rsync.Mode,
		SourceDir:         c.Rsync.SourceDir,
		SourceHost:        c.Rsync.SourceHost,
		SSHUser:           c.Rsync.SSHUser,
		SSHKey:            c.Rsync.SSHKey,
		RulesFile:         c.RulesFile,
		AdditionalOptions: c.Rsync.AdditionalOptions,
		Timeout:           c.Rsync.Timeout,
		ChecksumChoice:    c.Rsync.ChecksumChoice,
	}
}

// MailEnabled reports whether any recipient is configured.
func (c *Config) MailEnabled() bool {
	for _, a := range c.Reporting.ToAddrs {
		if strings.TrimSpace(a) != "" {
			return true
		}
	}
	return false
}
