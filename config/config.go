package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type MailConfig struct {
	From         string `yaml:"from"`
	ResendAPIKey string `yaml:"resend_api_key"`
	AlertEmail   string `yaml:"alert_email"`
}

// PipelineConfig carries the delivery-pipeline knobs. Zero values are
// replaced with defaults in ApplyDefaults.
type PipelineConfig struct {
	AlertThresholdPercent int `yaml:"alert_threshold_percent"`
	MaxRetries            int `yaml:"max_retries"`
	BatchSize             int `yaml:"batch_size"`
	BackoffBaseMs         int `yaml:"backoff_base_ms"`
	BackoffCapMs          int `yaml:"backoff_cap_ms"`
	DedupWindowHours      int `yaml:"dedup_window_hours"`
	PollIntervalSeconds   int `yaml:"poll_interval_seconds"`
}

type Config struct {
	DB       DBConfig       `yaml:"db"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Mail     MailConfig     `yaml:"mail"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Load reads config.yaml, applies environment-variable overrides and fills
// in pipeline defaults.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

func LoadFile(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		// No file: environment variables must carry everything.
	} else {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	overrideFromEnv(&cfg)
	cfg.Pipeline.ApplyDefaults()

	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	return &cfg, nil
}

// ApplyDefaults fills unset knobs with the documented defaults.
func (p *PipelineConfig) ApplyDefaults() {
	if p.AlertThresholdPercent <= 0 {
		p.AlertThresholdPercent = 20
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 5
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 50
	}
	if p.BackoffBaseMs <= 0 {
		p.BackoffBaseMs = 200
	}
	if p.BackoffCapMs <= 0 {
		p.BackoffCapMs = 30000
	}
	if p.DedupWindowHours <= 0 {
		p.DedupWindowHours = 24
	}
	if p.PollIntervalSeconds <= 0 {
		p.PollIntervalSeconds = 300
	}
}

// DedupWindow returns the trailing suppression window as a duration.
func (p PipelineConfig) DedupWindow() time.Duration {
	return time.Duration(p.DedupWindowHours) * time.Hour
}

// BackoffBase returns the first retry delay.
func (p PipelineConfig) BackoffBase() time.Duration {
	return time.Duration(p.BackoffBaseMs) * time.Millisecond
}

// BackoffCap returns the retry delay ceiling.
func (p PipelineConfig) BackoffCap() time.Duration {
	return time.Duration(p.BackoffCapMs) * time.Millisecond
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}

	if from := os.Getenv("MAIL_FROM"); from != "" {
		cfg.Mail.From = from
	}
	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		cfg.Mail.ResendAPIKey = key
	}
	if alert := os.Getenv("ALERT_EMAIL"); alert != "" {
		cfg.Mail.AlertEmail = alert
	}

	if v := os.Getenv("ALERT_THRESHOLD_PERCENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.AlertThresholdPercent = n
		}
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.MaxRetries = n
		}
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.BatchSize = n
		}
	}
	if v := os.Getenv("DEDUP_WINDOW_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.DedupWindowHours = n
		}
	}
}
