// Package config loads bot settings from config.yaml, the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// PIXELBOT_REPAINT_DELAY=5s.
const EnvPrefix = "PIXELBOT"

type API struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	UserAgent string        `mapstructure:"user_agent"`
}

type Repaint struct {
	Enabled     bool          `mapstructure:"enabled"`
	Delay       time.Duration `mapstructure:"delay"`
	Palette     string        `mapstructure:"palette"`
	Distance    string        `mapstructure:"distance"`
	ProgressDir string        `mapstructure:"progress_dir"`
	ImageDir    string        `mapstructure:"image_dir"`
	Preview     bool          `mapstructure:"preview"`
}

type Run struct {
	Concurrency int           `mapstructure:"concurrency"`
	Interval    time.Duration `mapstructure:"interval"`
}

type Files struct {
	Profiles   string `mapstructure:"profiles"`
	UserData   string `mapstructure:"userdata"`
	Tasks      string `mapstructure:"tasks"`
	CheckTasks string `mapstructure:"checktasks"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	NoColor    bool   `mapstructure:"no_color"`
}

// Config is the complete bot configuration.
type Config struct {
	API     API     `mapstructure:"api"`
	Repaint Repaint `mapstructure:"repaint"`
	Run     Run     `mapstructure:"run"`
	Files   Files   `mapstructure:"files"`
	Log     Log     `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://notpx.app/api/v1")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.rate_limit", 5.0)
	v.SetDefault("api.burst", 5)
	v.SetDefault("api.user_agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148")

	v.SetDefault("repaint.enabled", true)
	v.SetDefault("repaint.delay", 3*time.Second)
	v.SetDefault("repaint.palette", "")
	v.SetDefault("repaint.distance", "manhattan")
	v.SetDefault("repaint.progress_dir", ".")
	v.SetDefault("repaint.image_dir", ".")
	v.SetDefault("repaint.preview", false)

	v.SetDefault("run.concurrency", 10)
	v.SetDefault("run.interval", 10*time.Minute)

	v.SetDefault("files.profiles", "profile.json")
	v.SetDefault("files.userdata", "userdata.json")
	v.SetDefault("files.tasks", "tasks.json")
	v.SetDefault("files.checktasks", "checktasks.json")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 25)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.no_color", false)
}

// Load reads the configuration. An explicit path must exist; otherwise
// config.yaml is looked up in the working directory and
// $HOME/.pixelbot, and a missing file just means defaults. Values from
// .env and PIXELBOT_* variables override the file.
func Load(path string) (*Config, error) {
	// .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pixelbot"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return errors.New("api.base_url must be set")
	case c.Run.Concurrency < 1:
		return fmt.Errorf("run.concurrency must be at least 1, got %d", c.Run.Concurrency)
	case c.Run.Interval <= 0:
		return fmt.Errorf("run.interval must be positive, got %s", c.Run.Interval)
	case c.Repaint.Delay < 0:
		return fmt.Errorf("repaint.delay must not be negative, got %s", c.Repaint.Delay)
	}
	return nil
}
