package config

import (
	"time"

	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/transfer"
)

// Config is the merged configuration of one backup job. The global file
// provides defaults, the job file under conf.d overrides them key by key.
type Config struct {
	General      GeneralConfig   `yaml:"general"`
	Rsync        RsyncConfig     `yaml:"rsync"`
	Retention    RetentionConfig `yaml:"retention"`
	Reporting    ReportingConfig `yaml:"reporting"`
	Logging      logging.Config  `yaml:"logging"`
	Metrics      MetricsConfig   `yaml:"metrics"`
	Schedule     ScheduleConfig  `yaml:"schedule"`
	ConfigReload ReloadConfig    `yaml:"configReload"`

	// Job is the conf.d name this configuration was loaded for.
	Job string `yaml:"-"`
	// RulesFile is the rsync filter file of the job, conf.d/<job>.rules.
	RulesFile string `yaml:"-"`
}

type GeneralConfig struct {
	BackupRoot           string `yaml:"backupRoot"`
	Label                string `yaml:"label"`
	Umask                string `yaml:"umask"`                // octal, e.g. "0077"
	VerificationInterval int    `yaml:"verificationInterval"` // days, 0 disables
	PidDir               string `yaml:"pidDir"`
}

type RsyncConfig struct {
	Pathname          string        `yaml:"pathname"`
	Mode              string        `yaml:"mode"` // "local", "ssh"
	SourceDir         string        `yaml:"sourceDir"`
	SourceHost        string        `yaml:"sourceHost"`
	SSHUser           string        `yaml:"sshUser"`
	SSHKey            string        `yaml:"sshKey"`
	AdditionalOptions []string      `yaml:"additionalOptions"`
	Timeout           time.Duration `yaml:"timeout"` // 0 = no deadline
	// ChecksumChoice pins the digest rsync prints for %C. Set it to ""
	// for rsync older than 3.2, which lacks the option and always uses md5.
	ChecksumChoice string `yaml:"checksumChoice"`
}

// RetentionConfig holds how many snapshots of each interval to keep.
// A count below 1 disables the interval. Logs is an age in days.
type RetentionConfig struct {
	Daily   int `yaml:"daily"`
	Monthly int `yaml:"monthly"`
	Yearly  int `yaml:"yearly"`
	Logs    int `yaml:"logs"`
}

type ReportingConfig struct {
	ToAddrs        []string `yaml:"toAddrs"`
	FromAddr       string   `yaml:"fromAddr"`
	SMTPServer     string   `yaml:"smtpServer"` // host:port
	ReportInterval int      `yaml:"reportInterval"`
	LinkToLogs     bool     `yaml:"linkToLogs"`
	BaseURL        string   `yaml:"baseURL"`
}

type MetricsConfig struct {
	// TextfileDir receives rsync_backup_<label>.prom for the node exporter.
	TextfileDir string `yaml:"textfileDir"`
}

type ScheduleConfig struct {
	Jobs []ScheduledJob `yaml:"jobs"`
}

// ScheduledJob runs a conf.d job on cron expressions in daemon mode.
type ScheduledJob struct {
	Job    string `yaml:"job"`
	Backup string `yaml:"backup"`
	Verify string `yaml:"verify"`
}

type ReloadConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Mode         string        `yaml:"mode"` // "auto", "poll", "fsnotify"
	PollInterval time.Duration `yaml:"pollInterval"`
}

// Default returns the values used for keys no file sets.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			Umask:                "0077",
			VerificationInterval: 30,
			PidDir:               "/var/run/backup",
		},
		Rsync: RsyncConfig{
			Pathname:       "rsync",
			Mode:           "local",
			ChecksumChoice: transfer.DefaultChecksumChoice,
		},
		Retention: RetentionConfig{
			Daily:   7,
			Monthly: 12,
			Yearly:  3,
			Logs:    90,
		},
		Reporting: ReportingConfig{
			ReportInterval: 7,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
		ConfigReload: ReloadConfig{
			Mode:         "auto",
			PollInterval: 10 * time.Second,
		},
	}
}
