// Package config loads the server's YAML configuration and builds its logger.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/attendance-engine/attendance"
)

// Config is the whole server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Policy   PolicyConfig   `yaml:"policy"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"-"`
	WriteTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw  string        `yaml:"read_timeout"`
	WriteTimeoutRaw string        `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	// Path is a SQLite file path, or ":memory:".
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

type PolicyConfig struct {
	// CLCountsAsAttendance is a pointer so an absent key keeps the default.
	CLCountsAsAttendance *bool `yaml:"cl_counts_as_attendance"`
	Workers              int   `yaml:"workers"`
}

type ScheduleConfig struct {
	// MonthCloseInterval is how often to check for an unclosed previous
	// month. Zero disables the scheduler.
	MonthCloseInterval    time.Duration `yaml:"-"`
	MonthCloseIntervalRaw string        `yaml:"month_close_interval"`
}

// Options converts the policy section into attendance.PolicyOptions.
func (p PolicyConfig) Options() attendance.PolicyOptions {
	opts := attendance.DefaultPolicyOptions()
	if p.CLCountsAsAttendance != nil {
		opts.CLCountsAsAttendance = *p.CLCountsAsAttendance
	}
	return opts
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.validateAndNormalize(); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}
	if c.Database.Path == "" {
		c.Database.Path = "attendance.db"
	}
	if err := c.Log.validateAndNormalize(); err != nil {
		return err
	}

	if c.Policy.Workers < 0 {
		return fmt.Errorf("config: policy.workers must not be negative")
	}
	if c.Policy.Workers == 0 {
		c.Policy.Workers = 4
	}

	if raw := c.Schedule.MonthCloseIntervalRaw; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config: schedule.month_close_interval: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("config: schedule.month_close_interval must not be negative")
		}
		c.Schedule.MonthCloseInterval = d
	}
	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.ListenAddr == "" {
		s.ListenAddr = ":8080"
	}

	read, err := parseDurationDefault(s.ReadTimeoutRaw, 15*time.Second)
	if err != nil {
		return fmt.Errorf("config: server.read_timeout: %w", err)
	}
	s.ReadTimeout = read

	write, err := parseDurationDefault(s.WriteTimeoutRaw, 15*time.Second)
	if err != nil {
		return fmt.Errorf("config: server.write_timeout: %w", err)
	}
	s.WriteTimeout = write
	return nil
}

func (l *LogConfig) validateAndNormalize() error {
	if l.Level == "" {
		l.Level = "info"
	}
	switch l.Format {
	case "":
		l.Format = "json"
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format must be json or text, got %q", l.Format)
	}
	return nil
}

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}
