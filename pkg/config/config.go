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

type Config struct {
	Environment string          `yaml:"environment" default:"development"`
	Version     string          `yaml:"version" default:"1.0.0"`
	Log         LogConfig       `yaml:"log"`
	Server      ServerConfig    `yaml:"server"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Risk        RiskConfig      `yaml:"risk"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
	Gemini      GeminiConfig    `yaml:"gemini"`
	Analysis    AnalysisConfig  `yaml:"analysis"`
	Backend     BackendConfig   `yaml:"backend"`
	Kafka       KafkaConfig     `yaml:"kafka"`
	ClickHouse  ClickHouseConf  `yaml:"clickhouse"`
	Redis       RedisConfig     `yaml:"redis"`
	Cache       CacheConfig     `yaml:"cache"`
	Queue       QueueConfig     `yaml:"queue"`
	RateLimit   RateLimitConfig `yaml:"ratelimit"`
}

type LogConfig struct {
	Level     string `yaml:"level" default:"info"`
	Format    string `yaml:"format" default:"json"`
	Output    string `yaml:"output" default:"stdout"`
	Collector struct {
		Enabled        bool          `yaml:"enabled"`
		FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
		CountThreshold int           `yaml:"count_threshold" default:"100"`
	} `yaml:"collector"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"180s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
}

type MetricsConfig struct {
	Enabled       bool          `yaml:"enabled" default:"true"`
	Path          string        `yaml:"path" default:"/metrics"`
	SlowThreshold time.Duration `yaml:"slow_threshold" default:"5s"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name" default:"fxdesk"`
	PrettyPrint bool   `yaml:"pretty_print"`
}

// RiskConfig holds the account defaults a run starts from.
type RiskConfig struct {
	AccountBalance  float64 `yaml:"account_balance" default:"10000"`
	MaxRiskFraction float64 `yaml:"max_risk_fraction" default:"0.02"`
	PipScale        float64 `yaml:"pip_scale" default:"10000"`
	// PipScaleOverrides maps a pair (e.g. "USD/JPY") to its pip scale. Empty by default.
	PipScaleOverrides map[string]float64 `yaml:"pip_scale_overrides"`
}

// PipScaleFor returns the configured pip scale for pair.
func (r RiskConfig) PipScaleFor(pair string) float64 {
	if v, ok := r.PipScaleOverrides[strings.ToUpper(pair)]; ok && v > 0 {
		return v
	}
	return r.PipScale
}

type PipelineConfig struct {
	RunTimeout             time.Duration `yaml:"run_timeout" default:"120s"`
	StageTimeout           time.Duration `yaml:"stage_timeout" default:"45s"`
	FanOutWorkers          int64         `yaml:"fanout_workers" default:"24"`
	ObserverTimeout        time.Duration `yaml:"observer_timeout" default:"2s"`
	SynthesisMinConfidence float64       `yaml:"synthesis_min_confidence" default:"0.7"`
}

type GeminiConfig struct {
	APIKey               string        `yaml:"api_key"`
	Model                string        `yaml:"model" default:"gemini-2.5-flash"`
	NewsTemperature      float32       `yaml:"news_temperature" default:"0.2"`
	SynthesisTemperature float32       `yaml:"synthesis_temperature" default:"0.3"`
	Timeout              time.Duration `yaml:"timeout" default:"60s"`
	GroundedSearch       bool          `yaml:"grounded_search" default:"true"`
}

// Configured reports whether a Gemini API key is available.
func (g GeminiConfig) Configured() bool {
	return g.APIKey != ""
}

type AnalysisConfig struct {
	ServiceURL   string        `yaml:"service_url"`
	Timeout      time.Duration `yaml:"timeout" default:"10s"`
	Retries      int           `yaml:"retries" default:"2"`
	RetryBackoff time.Duration `yaml:"retry_backoff" default:"500ms"`
	// Seed fixes the mock generators. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

type BackendConfig struct {
	Type         string        `yaml:"type" default:"none"`
	BufferSize   int           `yaml:"buffer_size" default:"256"`
	MaxRetries   int           `yaml:"max_retries" default:"3"`
	RetryBackoff time.Duration `yaml:"retry_backoff" default:"200ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
}

// Publishes reports whether decision records go to Kafka.
func (b BackendConfig) Publishes() bool { return b.Type == "kafka" || b.Type == "both" }

// Stores reports whether decision records go to ClickHouse.
func (b BackendConfig) Stores() bool { return b.Type == "clickhouse" || b.Type == "both" }

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
	DecisionsTopic string   `yaml:"decisions_topic" default:"fxdesk.decisions"`
	RequestsTopic  string   `yaml:"requests_topic" default:"fxdesk.analysis-requests"`
	LogsTopic      string   `yaml:"logs_topic" default:"fxdesk.logs"`
	RequiredAcks   int      `yaml:"required_acks" default:"1"`
	Compression    string   `yaml:"compression" default:"snappy"`
	Producer       struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		GroupID    string        `yaml:"group_id" default:"fxdesk-analysis"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"64"`
		RetryMax   int           `yaml:"retry_max" default:"2"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"fxdesk.analysis-requests.dlq"`
		DedupTTL   time.Duration `yaml:"dedup_ttl" default:"1h"`
	} `yaml:"consumer"`
}

type ClickHouseConf struct {
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"fxdesk"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	AsyncInsert  bool          `yaml:"async_insert" default:"true"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
	Prefix   string `yaml:"prefix" default:"fxdesk"`
}

type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" default:"true"`
	ResultTTL     time.Duration `yaml:"result_ttl" default:"5m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"512"`
}

type QueueConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Name       string        `yaml:"name" default:"analysis"`
	Workers    int           `yaml:"workers" default:"2"`
	QueueSize  int           `yaml:"queue_size" default:"100"`
	RetryLimit int           `yaml:"retry_limit" default:"2"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	StatusTTL  time.Duration `yaml:"status_ttl" default:"24h"`
}

type RateLimitConfig struct {
	Enabled      bool    `yaml:"enabled" default:"true"`
	Capacity     float64 `yaml:"capacity" default:"10"`
	RefillPerSec float64 `yaml:"refill_per_sec" default:"0.5"`
}

// Load reads a YAML file, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv is Load with environment overrides applied before validation.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Default returns a config holding only default values.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

func parse(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GOOGLE_AI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("ACCOUNT_BALANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ACCOUNT_BALANCE: %w", err)
		}
		c.Risk.AccountBalance = f
	}
	if v := os.Getenv("MAX_RISK_PER_TRADE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MAX_RISK_PER_TRADE: %w", err)
		}
		c.Risk.MaxRiskFraction = f
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("ANALYSIS_SERVICE_URL"); v != "" {
		c.Analysis.ServiceURL = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Risk.AccountBalance <= 0 {
		return fmt.Errorf("risk.account_balance must be positive, got %v", c.Risk.AccountBalance)
	}
	if c.Risk.MaxRiskFraction <= 0 || c.Risk.MaxRiskFraction > 1 {
		return fmt.Errorf("risk.max_risk_fraction must be in (0, 1], got %v", c.Risk.MaxRiskFraction)
	}
	if c.Risk.PipScale <= 0 {
		return fmt.Errorf("risk.pip_scale must be positive, got %v", c.Risk.PipScale)
	}
	for pair, scale := range c.Risk.PipScaleOverrides {
		if scale <= 0 {
			return fmt.Errorf("risk.pip_scale_overrides[%s] must be positive", pair)
		}
	}
	if c.Pipeline.FanOutWorkers < 3 {
		return fmt.Errorf("pipeline.fanout_workers must be at least 3, got %d", c.Pipeline.FanOutWorkers)
	}
	if c.Pipeline.SynthesisMinConfidence < 0 || c.Pipeline.SynthesisMinConfidence > 1 {
		return fmt.Errorf("pipeline.synthesis_min_confidence must be in [0, 1]")
	}

	switch c.Backend.Type {
	case "none", "kafka", "clickhouse", "both":
	default:
		return fmt.Errorf("backend.type must be one of none, kafka, clickhouse, both; got '%s'", c.Backend.Type)
	}
	if (c.Backend.Publishes() || c.Kafka.Consumer.Enabled || c.Log.Collector.Enabled) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is in use")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue.enabled requires redis.enabled")
	}
	return nil
}
