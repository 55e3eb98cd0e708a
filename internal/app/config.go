package app

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/hubex"
	"github.com/maxbolgarin/lang"
)

const (
	defaultWorkers      = 4
	defaultPollInterval = 30 * time.Second
)

// Config is the top level application configuration.
type Config struct {
	GitHub hubex.Config `yaml:"github"`
	Fetch  FetchConfig  `yaml:"fetch"`
}

// FetchConfig tunes bulk fetching and comment polling.
type FetchConfig struct {
	// Workers bounds how many commits are fetched concurrently.
	Workers int `yaml:"workers" env:"FETCH_WORKERS"`

	// PollInterval is the pause between comment polls in watch mode.
	PollInterval time.Duration `yaml:"poll_interval" env:"FETCH_POLL_INTERVAL"`
}

// LoadConfig reads configuration from an optional YAML file with
// environment variables on top.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, errm.Wrap(err, "failed to read config file")
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, errm.Wrap(err, "failed to read environment")
		}
	}

	if err := cfg.PrepareAndValidate(); err != nil {
		return cfg, errm.Wrap(err, "failed to prepare and validate config")
	}

	return cfg, nil
}

// PrepareAndValidate fills defaults and checks the config.
func (cfg *Config) PrepareAndValidate() error {
	if err := cfg.GitHub.PrepareAndValidate(); err != nil {
		return errm.Wrap(err, "github")
	}

	cfg.Fetch.Workers = lang.Check(cfg.Fetch.Workers, defaultWorkers)
	cfg.Fetch.PollInterval = lang.Check(cfg.Fetch.PollInterval, defaultPollInterval)

	return nil
}
