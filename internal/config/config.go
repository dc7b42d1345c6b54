package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default scheduler commands and settings.
const (
	DefaultSubmitCommand = "qsub"
	DefaultStatusCommand = "qstat"
	DefaultCancelCommand = "qdel"
	DefaultShell         = "/bin/sh"
	DefaultPollInterval  = 2 * time.Second
	DefaultJobIDPattern  = `(\d+) \(`
)

// Config holds configuration for the qsubwt wrapper.
type Config struct {
	SubmitCommand string        `yaml:"submit_command"` // Submit executable (default "qsub")
	StatusCommand string        `yaml:"status_command"` // Status executable, invoked as "<cmd> -j <id>"
	CancelCommand string        `yaml:"cancel_command"` // Cancel executable, invoked as "<cmd> <id>"
	Shell         string        `yaml:"shell"`          // Interpreter used for "-c <command>"
	PollInterval  time.Duration `yaml:"poll_interval"`  // Delay between status checks
	JobIDPattern  string        `yaml:"job_id_pattern"` // First capture group is the job id
	StrictStatus  bool          `yaml:"strict_status"`  // Abort when the status command cannot be run
	LogLevel      string        `yaml:"log_level"`      // debug, info, warn, error
	LogFormat     string        `yaml:"log_format"`     // text, json
	LogFile       string        `yaml:"log_file"`       // Empty means stdout
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SubmitCommand: DefaultSubmitCommand,
		StatusCommand: DefaultStatusCommand,
		CancelCommand: DefaultCancelCommand,
		Shell:         DefaultShell,
		PollInterval:  DefaultPollInterval,
		JobIDPattern:  DefaultJobIDPattern,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// DefaultPath returns the config file consulted when none is given explicitly:
// $QSUBWT_CONFIG if set, otherwise ~/.qsubwt.yaml.
func DefaultPath() string {
	if p := os.Getenv("QSUBWT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".qsubwt.yaml")
}

// Load builds a Config from defaults, the YAML file at path and the
// QSUBWT_* environment.
// A missing file is not an error unless required is true.
func Load(path string, required bool) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from QSUBWT_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("QSUBWT_SUBMIT"); ok && v != "" {
		c.SubmitCommand = v
	}
	if v, ok := lookup("QSUBWT_STATUS"); ok && v != "" {
		c.StatusCommand = v
	}
	if v, ok := lookup("QSUBWT_CANCEL"); ok && v != "" {
		c.CancelCommand = v
	}
	if v, ok := lookup("QSUBWT_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QSUBWT_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	if v, ok := lookup("QSUBWT_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("QSUBWT_DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("QSUBWT_DEBUG: %w", err)
		}
		if debug {
			c.LogLevel = "debug"
		}
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"submit_command", c.SubmitCommand},
		{"status_command", c.StatusCommand},
		{"cancel_command", c.CancelCommand},
		{"shell", c.Shell},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("config: %s must not be empty", f.name)
		}
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive, got %s", c.PollInterval)
	}
	if _, err := c.CompileJobIDPattern(); err != nil {
		return err
	}
	return nil
}

// CompileJobIDPattern compiles JobIDPattern and checks it has a capture group.
func (c Config) CompileJobIDPattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.JobIDPattern)
	if err != nil {
		return nil, fmt.Errorf("config: job_id_pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("config: job_id_pattern %q has no capture group", c.JobIDPattern)
	}
	return re, nil
}
