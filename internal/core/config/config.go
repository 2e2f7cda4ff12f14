package config

import (
	"time"

	redisclient "github.com/vietddude/dashclient/internal/infra/redis"
	"github.com/vietddude/dashclient/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Client       ClientConfig       `yaml:"client"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Credentials  CredentialsConfig  `yaml:"credentials"`
	Support      SupportConfig      `yaml:"support"`
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Redis        redisclient.Config `yaml:"redis"`
	Database     postgres.Config    `yaml:"database"`
}

// ClientConfig is the dispatcher configuration. It is set once at startup and
// read-only afterwards.
type ClientConfig struct {
	BaseEndpoint    string        `yaml:"base_endpoint"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	RetryMultiplier float64       `yaml:"retry_multiplier"`
	MaxRetryDelay   time.Duration `yaml:"max_retry_delay"`

	EnableOfflineQueue bool          `yaml:"enable_offline_queue"`
	MaxQueueSize       int           `yaml:"max_queue_size"`
	QueueTimeout       time.Duration `yaml:"queue_timeout"`
	DrainInterval      time.Duration `yaml:"drain_interval"` // pause between replayed requests

	LoginPath string `yaml:"login_path"` // where re-authentication navigates
}

// ConnectivityConfig controls the online/offline probe.
type ConnectivityConfig struct {
	HealthPath    string        `yaml:"health_path"`
	ProbeInterval time.Duration `yaml:"probe_interval"` // 0 disables probing
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

// CredentialsConfig selects where the auth token is persisted.
type CredentialsConfig struct {
	Store string `yaml:"store"` // memory, file, redis
	Dir   string `yaml:"dir"`   // file store directory
}

// SupportConfig selects where contact-support requests go.
type SupportConfig struct {
	Sink  string `yaml:"sink"` // log, postgres
	Email string `yaml:"email"`
}

// ServerConfig holds the diagnostics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultClientConfig returns the dispatcher defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:            30 * time.Second,
		MaxRetries:         3,
		RetryDelay:         1 * time.Second,
		RetryMultiplier:    2.0,
		MaxRetryDelay:      10 * time.Second,
		EnableOfflineQueue: true,
		MaxQueueSize:       50,
		QueueTimeout:       5 * time.Minute,
		DrainInterval:      100 * time.Millisecond,
		LoginPath:          "/login",
	}
}
