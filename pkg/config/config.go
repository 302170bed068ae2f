package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		Compression     bool          `yaml:"compression"`
		RateLimit       struct {
			Enabled bool    `yaml:"enabled"`
			RPS     float64 `yaml:"rps"`
			Burst   int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Positions struct {
		Backend string        `yaml:"backend"` // clickhouse or postgres
		Table   string        `yaml:"table"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"positions"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"postgres"`
	Greeks struct {
		BaseURL    string        `yaml:"base_url"`
		Token      string        `yaml:"token"`
		Timeout    time.Duration `yaml:"timeout"`
		RPS        float64       `yaml:"rps"`
		Burst      int           `yaml:"burst"`
		LookbackBD int           `yaml:"lookback_days"`
	} `yaml:"greeks"`
	Price struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
		RPS     float64       `yaml:"rps"`
		Burst   int           `yaml:"burst"`
	} `yaml:"price"`
	Breaker struct {
		MaxRequests  uint32        `yaml:"max_requests"`
		Interval     time.Duration `yaml:"interval"`
		Timeout      time.Duration `yaml:"timeout"`
		FailureRatio float64       `yaml:"failure_ratio"`
		MinRequests  uint32        `yaml:"min_requests"`
	} `yaml:"breaker"`
	Cache struct {
		TTL         time.Duration `yaml:"ttl"`
		PriceTTL    time.Duration `yaml:"price_ttl"`
		Expirations time.Duration `yaml:"expirations_ttl"`
		Redis       struct {
			Enabled  bool          `yaml:"enabled"`
			Addr     string        `yaml:"addr"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db"`
			PoolSize int           `yaml:"pool_size"`
			L1TTL    time.Duration `yaml:"l1_ttl"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		AlertsTopic  string   `yaml:"alerts_topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Jobs struct {
		WarmSchedule string   `yaml:"warm_schedule"`
		Watchlist    []string `yaml:"watchlist"`
	} `yaml:"jobs"`
	Analytics struct {
		DimensionTimeout time.Duration `yaml:"dimension_timeout"`
		ProbeWorkers     int           `yaml:"probe_workers"`
		IVHistoryDays    int           `yaml:"iv_history_days"`
	} `yaml:"analytics"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
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
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("GREEKS_API_TOKEN"); v != "" {
		c.Greeks.Token = v
	}
	if v := getenv("POSITIONS_BACKEND"); v != "" {
		c.Positions.Backend = v
	}
	if v := getenv("POSITIONS_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("WATCHLIST"); v != "" {
		c.Jobs.Watchlist = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Positions.Backend == "" {
		c.Positions.Backend = "clickhouse"
	}
	if c.Positions.Table == "" {
		c.Positions.Table = "opcoes_posicoes"
	}
	if c.Positions.Timeout == 0 {
		c.Positions.Timeout = 15 * time.Second
	}
	if c.Greeks.Timeout == 0 {
		c.Greeks.Timeout = 15 * time.Second
	}
	if c.Greeks.LookbackBD == 0 {
		c.Greeks.LookbackBD = 15
	}
	if c.Price.BaseURL == "" {
		c.Price.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Price.Timeout == 0 {
		c.Price.Timeout = 10 * time.Second
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.PriceTTL == 0 {
		c.Cache.PriceTTL = time.Minute
	}
	if c.Cache.Expirations == 0 {
		c.Cache.Expirations = 30 * time.Minute
	}
	if c.Kafka.AlertsTopic == "" {
		c.Kafka.AlertsTopic = "alerts"
	}
	if c.Kafka.LogsTopic == "" {
		c.Kafka.LogsTopic = "logs"
	}
	if c.Analytics.DimensionTimeout == 0 {
		c.Analytics.DimensionTimeout = 30 * time.Second
	}
	if c.Analytics.ProbeWorkers == 0 {
		c.Analytics.ProbeWorkers = 4
	}
	if c.Analytics.IVHistoryDays == 0 {
		c.Analytics.IVHistoryDays = 10
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Positions.Backend {
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for positions.backend 'clickhouse'")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for positions.backend 'postgres'")
		}
	default:
		return fmt.Errorf("positions.backend must be 'clickhouse' or 'postgres', got '%s'", c.Positions.Backend)
	}
	if c.Greeks.BaseURL == "" {
		return fmt.Errorf("greeks.base_url is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	return nil
}
