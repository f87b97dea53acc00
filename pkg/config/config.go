package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Source struct {
		BaseURL       string        `yaml:"base_url"`
		Asset         string        `yaml:"asset"`
		VsCurrency    string        `yaml:"vs_currency"`
		Timeout       time.Duration `yaml:"timeout"`
		BootstrapDays int           `yaml:"bootstrap_days"`
	} `yaml:"source"`
	Model struct {
		Dir          string  `yaml:"dir"`
		HorizonDays  int     `yaml:"horizon_days"`
		Alpha        float64 `yaml:"alpha"`
		LookbackDays int     `yaml:"lookback_days"`
	} `yaml:"model"`
	Scheduler struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"scheduler"`
	Events struct {
		Sink  string `yaml:"sink"` // none, kafka, redis
		Kafka struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"kafka"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Channel  string `yaml:"channel"`
		} `yaml:"redis"`
	} `yaml:"events"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("SOURCE_ASSET"); v != "" {
		c.Source.Asset = v
	}
	if v := os.Getenv("EVENTS_SINK"); v != "" {
		c.Events.Sink = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MODEL_HORIZON_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Model.HorizonDays = n
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.ClickHouse.Port <= 0 {
		c.ClickHouse.Port = 9000
	}
	if c.ClickHouse.User == "" {
		c.ClickHouse.User = "default"
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Source.Asset == "" {
		c.Source.Asset = "bitcoin"
	}
	if c.Source.VsCurrency == "" {
		c.Source.VsCurrency = "usd"
	}
	if c.Source.Timeout <= 0 {
		c.Source.Timeout = 10 * time.Second
	}
	if c.Source.BootstrapDays <= 0 {
		c.Source.BootstrapDays = 365
	}
	if c.Model.Dir == "" {
		c.Model.Dir = "models"
	}
	if c.Model.HorizonDays <= 0 {
		c.Model.HorizonDays = 7
	}
	if c.Model.Alpha <= 0 {
		c.Model.Alpha = 1.0
	}
	if c.Model.LookbackDays <= 0 {
		c.Model.LookbackDays = 30
	}
	if c.Scheduler.Cron == "" {
		c.Scheduler.Cron = "0 15 0 * * *" // daily 00:15 UTC, with seconds field
	}
	if c.Events.Sink == "" {
		c.Events.Sink = "none"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.ClickHouse.Database == "" {
		return fmt.Errorf("clickhouse.database is required")
	}
	switch c.Events.Sink {
	case "none", "kafka", "redis":
	default:
		return fmt.Errorf("events.sink must be 'none', 'kafka' or 'redis', got '%s'", c.Events.Sink)
	}
	if c.Events.Sink == "kafka" && len(c.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("events.kafka.brokers cannot be empty")
	}
	if c.Events.Sink == "redis" && c.Events.Redis.Addr == "" {
		return fmt.Errorf("events.redis.addr is required")
	}
	return nil
}
