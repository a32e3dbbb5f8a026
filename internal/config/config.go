// Package config loads runtime settings from defaults, an optional YAML file
// and CLASSPLAN_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Disabled turns a cron-scheduled job off.
const Disabled = "off"

type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Timezone is the IANA zone naive class times are interpreted in.
	Timezone string `yaml:"timezone"`

	// ResyncCron is a five-field cron expression or descriptor such as
	// "@daily", or "off".
	ResyncCron string `yaml:"resync_cron"`

	// AllowedOrigins are host patterns accepted on websocket upgrades.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// WriteLimit caps mutating requests per client IP per minute.
	WriteLimit int `yaml:"write_limit"`

	Backup BackupConfig `yaml:"backup"`

	location *time.Location
}

// BackupConfig controls database snapshots. Snapshots are encrypted when
// Passphrase is set.
type BackupConfig struct {
	Dir        string `yaml:"dir"`
	Cron       string `yaml:"cron"`
	Keep       int    `yaml:"keep"`
	Passphrase string `yaml:"passphrase"`
}

func Default() *Config {
	return &Config{
		Port:       "8080",
		DBPath:     "classplan.db",
		LogLevel:   "info",
		LogFormat:  "text",
		Timezone:   "Local",
		ResyncCron: "0 3 * * *",
		WriteLimit: 120,
		Backup: BackupConfig{
			Dir:  "backups",
			Cron: Disabled,
			Keep: 7,
		},
	}
}

// Load builds the configuration. getenv is usually os.Getenv; the YAML file
// named by CLASSPLAN_CONFIG is read when set.
func Load(getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path := getenv("CLASSPLAN_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set("CLASSPLAN_PORT", &c.Port)
	set("CLASSPLAN_DB_PATH", &c.DBPath)
	set("CLASSPLAN_LOG_LEVEL", &c.LogLevel)
	set("CLASSPLAN_LOG_FORMAT", &c.LogFormat)
	set("CLASSPLAN_TIMEZONE", &c.Timezone)
	set("CLASSPLAN_RESYNC_CRON", &c.ResyncCron)
	set("CLASSPLAN_BACKUP_DIR", &c.Backup.Dir)
	set("CLASSPLAN_BACKUP_CRON", &c.Backup.Cron)
	set("CLASSPLAN_BACKUP_PASSPHRASE", &c.Backup.Passphrase)

	if v := getenv("CLASSPLAN_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	if v := getenv("CLASSPLAN_WRITE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CLASSPLAN_WRITE_LIMIT: %w", err)
		}
		c.WriteLimit = n
	}
	if v := getenv("CLASSPLAN_BACKUP_KEEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CLASSPLAN_BACKUP_KEEP: %w", err)
		}
		c.Backup.Keep = n
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	c.location = loc

	if c.ResyncEnabled() {
		if _, err := cron.ParseStandard(c.ResyncCron); err != nil {
			errs = append(errs, fmt.Errorf("resync_cron %q: %w", c.ResyncCron, err))
		}
	}
	if c.BackupEnabled() {
		if _, err := cron.ParseStandard(c.Backup.Cron); err != nil {
			errs = append(errs, fmt.Errorf("backup.cron %q: %w", c.Backup.Cron, err))
		}
	}
	if c.Backup.Keep <= 0 {
		errs = append(errs, fmt.Errorf("backup.keep must be positive, got %d", c.Backup.Keep))
	}
	if c.WriteLimit <= 0 {
		errs = append(errs, fmt.Errorf("write_limit must be positive, got %d", c.WriteLimit))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	return errors.Join(errs...)
}

// Location returns the loaded Timezone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func (c *Config) ResyncEnabled() bool {
	return enabled(c.ResyncCron)
}

func (c *Config) BackupEnabled() bool {
	return enabled(c.Backup.Cron)
}

func enabled(spec string) bool {
	return spec != "" && !strings.EqualFold(spec, Disabled)
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
