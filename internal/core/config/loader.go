package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	cfg := AppConfig{Client: DefaultClientConfig()}

	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	def := DefaultClientConfig()
	c := &cfg.Client

	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = def.RetryMultiplier
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = def.MaxRetryDelay
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = def.MaxQueueSize
	}
	if c.QueueTimeout <= 0 {
		c.QueueTimeout = def.QueueTimeout
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = def.DrainInterval
	}
	if c.LoginPath == "" {
		c.LoginPath = def.LoginPath
	}

	if cfg.Connectivity.HealthPath == "" {
		cfg.Connectivity.HealthPath = "/health"
	}
	if cfg.Connectivity.ProbeTimeout <= 0 {
		cfg.Connectivity.ProbeTimeout = 5 * time.Second
	}

	if cfg.Credentials.Store == "" {
		cfg.Credentials.Store = "memory"
	}
	if cfg.Support.Sink == "" {
		cfg.Support.Sink = "log"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks settings that have no sensible default.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Client.BaseEndpoint == "" {
		errs = append(errs, errors.New("client.base_endpoint is required"))
	} else if u, err := url.Parse(c.Client.BaseEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("client.base_endpoint %q is not an absolute URL", c.Client.BaseEndpoint))
	}
	if c.Client.MaxRetries < 0 {
		errs = append(errs, errors.New("client.max_retries must not be negative"))
	}
	if c.Client.MaxRetryDelay < c.Client.RetryDelay {
		errs = append(errs, errors.New("client.max_retry_delay must be >= client.retry_delay"))
	}

	switch c.Credentials.Store {
	case "memory":
	case "file":
		if c.Credentials.Dir == "" {
			errs = append(errs, errors.New("credentials.dir is required for the file store"))
		}
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis credential store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown credentials.store %q", c.Credentials.Store))
	}

	switch c.Support.Sink {
	case "log":
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres support sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown support.sink %q", c.Support.Sink))
	}

	return errors.Join(errs...)
}
