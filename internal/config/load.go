package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the global configuration is looked up.
const DefaultPath = "/etc/rsync-backup/rsync-backup.yaml"

// JobDir is the directory, next to the global file, holding job files.
const JobDir = "conf.d"

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := mapEnvKey(envPattern.FindStringSubmatch(m)[1])
		return os.Getenv(key)
	})
}

// overlay decodes the YAML file at path into cfg. Keys absent from the
// file keep their current value.
func overlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("unmarshalling %s: %w", path, err)
	}
	return nil
}

// Load reads the global configuration on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := overlay(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// JobPaths returns the job file and rules file of job next to the global file.
func JobPaths(globalPath, job string) (conf, rules string) {
	dir := filepath.Join(filepath.Dir(globalPath), JobDir)
	return filepath.Join(dir, job+".yaml"), filepath.Join(dir, job+".rules")
}

// LoadJob reads the global file and then the job's own file over it.
func LoadJob(globalPath, job string) (*Config, error) {
	if job == "" || job != filepath.Base(job) {
		return nil, fmt.Errorf("%w: job name %q", ErrInvalid, job)
	}

	cfg, err := Load(globalPath)
	if err != nil {
		return nil, err
	}

	jobPath, rules := JobPaths(globalPath, job)
	if err := overlay(cfg, jobPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no configuration for job %q at %s", ErrInvalid, job, jobPath)
		}
		return nil, err
	}

	cfg.Job = job
	cfg.RulesFile = rules
	if cfg.General.Label == "" {
		cfg.General.Label = job
	}
	return cfg, nil
}
