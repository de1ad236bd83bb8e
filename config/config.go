package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Machine    MachineConfig    `yaml:"machine"`
	Push       PushConfig       `yaml:"push"`
	Events     EventsConfig     `yaml:"events"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the transition fan-out workers.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push is disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	GinMode         string        `yaml:"gin_mode"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// MachineConfig holds the auto-revert windows of the dispenser.
type MachineConfig struct {
	OpenWindowMs   int           `yaml:"open_window_ms"`
	DeniedWindowMs int           `yaml:"denied_window_ms"`
	OpenWindow     time.Duration `yaml:"-"`
	DeniedWindow   time.Duration `yaml:"-"`
}

// EventsConfig configures the NATS transition publisher. Empty URL disables it.
type EventsConfig struct {
	URL            string `yaml:"url"`
	Subject        string `yaml:"subject"`
	ConnectTimeout int    `yaml:"connect_timeout_seconds"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Machine.OpenWindowMs <= 0 {
		cfg.Machine.OpenWindowMs = 30000
	}
	if cfg.Machine.DeniedWindowMs <= 0 {
		cfg.Machine.DeniedWindowMs = 5000
	}
	cfg.Machine.OpenWindow = time.Duration(cfg.Machine.OpenWindowMs) * time.Millisecond
	cfg.Machine.DeniedWindow = time.Duration(cfg.Machine.DeniedWindowMs) * time.Millisecond

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 30
	}

	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "dispenser.state"
	}
	if cfg.Events.ConnectTimeout <= 0 {
		cfg.Events.ConnectTimeout = 5
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}
}
