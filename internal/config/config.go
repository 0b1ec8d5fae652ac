// Package config loads the settings shared by the speller commands: a YAML
// file with defaults, overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"speller/internal/corrector"
	"speller/pkg/options"
)

// Config maps the config file through YAML tags.
type Config struct {
	Archive string `yaml:"archive"`
	WorkDir string `yaml:"work_dir"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Redis struct {
		Addr     string `yaml:"addr"` // empty keeps the user dictionary in memory
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Search struct {
		NBest        int     `yaml:"n_best"`
		QueueLimit   int     `yaml:"queue_limit"`
		WeightLimit  float32 `yaml:"weight_limit"`
		Beam         float32 `yaml:"beam"`
		CaseHandling bool    `yaml:"case_handling"`
	} `yaml:"search"`

	Banner struct {
		SpellerSuggestions int `yaml:"speller_suggestions"`
		UserSuggestions    int `yaml:"user_suggestions"`
		CheckSuggestions   int `yaml:"check_suggestions"`
	} `yaml:"banner"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.Log.Level = "info"
	cfg.HTTP.Addr = ":8080"
	cfg.Search.NBest = options.DefaultOptions.NBest
	cfg.Search.QueueLimit = options.DefaultOptions.QueueLimit
	cfg.Search.WeightLimit = float32(math.Inf(1))
	cfg.Search.Beam = float32(math.Inf(1))
	cfg.Search.CaseHandling = true
	d := corrector.DefaultConfig()
	cfg.Banner.SpellerSuggestions = d.SpellerSuggestions
	cfg.Banner.UserSuggestions = d.UserSuggestions
	cfg.Banner.CheckSuggestions = d.CheckSuggestions
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return &cfg
}

// Load reads path on top of the defaults, then applies the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SPELLER_ARCHIVE", &c.Archive)
	str("SPELLER_WORK_DIR", &c.WorkDir)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	return nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("redis.db must not be negative"))
	}
	if c.Search.NBest < 0 || c.Search.QueueLimit < 0 {
		errs = append(errs, errors.New("search.n_best and search.queue_limit must not be negative"))
	}
	if c.Search.WeightLimit < 0 || c.Search.Beam < 0 {
		errs = append(errs, errors.New("search.weight_limit and search.beam must not be negative"))
	}
	if c.Banner.SpellerSuggestions < 0 || c.Banner.UserSuggestions < 0 || c.Banner.CheckSuggestions < 0 {
		errs = append(errs, errors.New("banner sizes must not be negative"))
	}
	return errors.Join(errs...)
}

// SpellerOptions turns the search section into speller defaults.
func (c *Config) SpellerOptions(log *zap.Logger) []options.Options {
	opts := []options.Options{
		options.WithNBest(c.Search.NBest),
		options.WithQueueLimit(c.Search.QueueLimit),
		options.WithWeightLimit(c.Search.WeightLimit),
		options.WithBeam(c.Search.Beam),
		options.WithWorkDir(c.WorkDir),
		options.WithLogger(log),
	}
	if !c.Search.CaseHandling {
		opts = append(opts, options.WithoutCaseHandling())
	}
	return opts
}

func (c *Config) CorrectorConfig() corrector.CorrectorConfig {
	cc := corrector.DefaultConfig()
	cc.SpellerSuggestions = c.Banner.SpellerSuggestions
	cc.UserSuggestions = c.Banner.UserSuggestions
	cc.CheckSuggestions = c.Banner.CheckSuggestions
	return cc
}

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
