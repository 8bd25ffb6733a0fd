package model

import (
	"errors"
	"fmt"
	"time"
)

// Config is the pkgeval configuration as loaded by viper from pkgeval.yaml
// or the PKGEVAL_* environment.
type Config struct {
	// Depot is the directory holding Registry.toml and Versions.toml.
	Depot string `mapstructure:"depot" yaml:"depot"`
	// Cache is where downloaded artifacts and unpacked runtimes live.
	Cache string `mapstructure:"cache" yaml:"cache"`
	// Logs is the root of the per-version log directories.
	Logs string `mapstructure:"logs" yaml:"logs"`
	// Output receives the JSON run reports; empty means stdout only.
	Output string `mapstructure:"output" yaml:"output,omitempty"`

	Version string        `mapstructure:"version" yaml:"version"`
	Workers int           `mapstructure:"workers" yaml:"workers"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Sandbox is the runner binary invoked for every job.
	Sandbox        string `mapstructure:"sandbox" yaml:"sandbox"`
	DepwarnAsError bool   `mapstructure:"depwarn_as_error" yaml:"depwarn_as_error"`

	// Skip lists package names marked skipped without being scheduled.
	Skip []string `mapstructure:"skip" yaml:"skip,omitempty"`

	Schedule Schedule `mapstructure:"schedule" yaml:"schedule,omitempty"`

	Verbose bool `mapstructure:"verbose" yaml:"verbose,omitempty"`
}

// Schedule configures the optional timer mode. Cron and Every are mutually
// exclusive; both empty means one-shot.
type Schedule struct {
	Cron  string `mapstructure:"cron" yaml:"cron,omitempty"`
	Every string `mapstructure:"every" yaml:"every,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Depot:   "depot",
		Cache:   "cache",
		Logs:    "logs",
		Workers: 4,
		Timeout: 45 * time.Minute,
		Sandbox: "pkgeval-sandbox",
	}
}

func (c Config) Validate() error {
	if c.Depot == "" {
		return errors.New("depot directory is not set")
	}
	if c.Version == "" {
		return errors.New("runtime version is not set")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Schedule.Cron != "" && c.Schedule.Every != "" {
		return errors.New("schedule.cron and schedule.every are mutually exclusive")
	}
	if c.Schedule.Cron != "" {
		if err := ParseCron(c.Schedule.Cron); err != nil {
			return fmt.Errorf("parsing schedule.cron: %w", err)
		}
	}
	if c.Schedule.Every != "" {
		if _, err := ParseEvery(c.Schedule.Every); err != nil {
			return fmt.Errorf("parsing schedule.every: %w", err)
		}
	}
	return nil
}
