package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// ProviderConfig configures one upstream market-data provider.
type ProviderConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" default:"800ms"`
	Retries int           `yaml:"retries" default:"1"`
	Breaker struct {
		MaxRequests      uint32        `yaml:"max_requests" default:"1"`
		Interval         time.Duration `yaml:"interval" default:"60s"`
		OpenTimeout      time.Duration `yaml:"open_timeout" default:"30s"`
		ConsecutiveFails uint32        `yaml:"consecutive_failures" default:"5"`
	} `yaml:"breaker"`
}

// Config is the runtime (infrastructure) configuration. Decision thresholds
// are not configurable here; they live in the frozen rules registry.
type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logger struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
		Alerts struct {
			Enabled       bool          `yaml:"enabled"`
			FlushInterval time.Duration `yaml:"flush_interval" default:"30s"`
			MaxDistinct   int           `yaml:"max_distinct" default:"100"`
		} `yaml:"alerts"`
	} `yaml:"logger"`
	Guard struct {
		Enabled   *bool         `yaml:"enabled"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		AlertOnly bool          `yaml:"alert_only"` // keep serving after a mismatch
	} `yaml:"guard"`
	Ledger struct {
		Backend      string        `yaml:"backend" default:"postgres"`
		QueryTimeout time.Duration `yaml:"query_timeout" default:"5s"`
		Table        string        `yaml:"table" default:"decision_ledger"`
	} `yaml:"ledger"`
	Postgres struct {
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
		ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" default:"5m"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"signalgate"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		CandleTable      string        `yaml:"candle_table" default:"candles_1m"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		SignalsTopic   string   `yaml:"signals_topic" default:"signals"`
		DecisionsTopic string   `yaml:"decisions_topic" default:"decisions"`
		AlertsTopic    string   `yaml:"alerts_topic" default:"signalgate.alerts"`
		RequiredAcks   int      `yaml:"required_acks" default:"-1"`
		Compression    string   `yaml:"compression" default:"snappy"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"signalgate"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"signals.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"2s"`
		Retry    struct {
			Enabled    bool          `yaml:"enabled"`
			KeyPrefix  string        `yaml:"key_prefix" default:"signalgate:ledger"`
			Workers    int           `yaml:"workers" default:"1"`
			RetryLimit int           `yaml:"retry_limit" default:"5"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		} `yaml:"retry"`
	} `yaml:"redis"`
	Providers struct {
		Options    ProviderConfig `yaml:"options"`
		Volatility struct {
			ProviderConfig `yaml:",inline"`
			Source         string `yaml:"source" default:"http"`
			Candles        int    `yaml:"candles" default:"60"`
		} `yaml:"volatility"`
		Liquidity ProviderConfig `yaml:"liquidity"`
	} `yaml:"providers"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
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
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := getenv("PG_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("OPTIONS_PROVIDER_URL"); v != "" {
		c.Providers.Options.URL = v
	}
	if v := getenv("VOLATILITY_PROVIDER_URL"); v != "" {
		c.Providers.Volatility.URL = v
	}
	if v := getenv("LIQUIDITY_PROVIDER_URL"); v != "" {
		c.Providers.Liquidity.URL = v
	}
	if v := getenv("PROVIDER_API_KEY"); v != "" {
		c.Providers.Options.APIKey = v
		c.Providers.Volatility.APIKey = v
		c.Providers.Liquidity.APIKey = v
	}
	if v := getenv("GUARD_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Guard.Enabled = &b
		}
	}
}

// GuardEnabled reports whether the integrity guard runs. Unless set
// explicitly it is on for production-like environments.
func (c *Config) GuardEnabled() bool {
	if c.Guard.Enabled != nil {
		return *c.Guard.Enabled
	}
	switch c.Environment {
	case "production", "prod", "staging":
		return true
	default:
		return false
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Ledger.Backend {
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for ledger.backend 'postgres'")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for ledger.backend 'clickhouse'")
		}
	case "memory":
	default:
		return fmt.Errorf("ledger.backend must be 'postgres', 'clickhouse' or 'memory', got '%s'", c.Ledger.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	switch c.Providers.Volatility.Source {
	case "http":
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for providers.volatility.source 'clickhouse'")
		}
	default:
		return fmt.Errorf("providers.volatility.source must be 'http' or 'clickhouse', got '%s'", c.Providers.Volatility.Source)
	}
	return nil
}

// NeedsClickHouse reports whether any component reads from ClickHouse.
func (c *Config) NeedsClickHouse() bool {
	return c.Ledger.Backend == "clickhouse" || c.Providers.Volatility.Source == "clickhouse"
}
