package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"TrendPipeline/internal/clustering"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "TREND_PIPELINE_CONFIG"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	LLM       LLMConfig       `yaml:"llm"`
	Publisher PublisherConfig `yaml:"publisher"`
	Sources   SourcesConfig   `yaml:"sources"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN selects
// the in-memory store.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// RedisConfig enables the hot-list cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TrendTTL time.Duration `yaml:"trendTtl"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// AuthConfig holds the shared secrets checked on mutating routes.
type AuthConfig struct {
	APISecret  string `yaml:"apiSecret"`
	SyncSecret string `yaml:"syncSecret"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines when the recurring ingest+sync cycle runs.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	RunOnStart     bool           `yaml:"runOnStart"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig tunes clustering, scoring and draft gating.
type PipelineConfig struct {
	RiskPolicy         string                    `yaml:"riskPolicy"`
	MinScore           int                       `yaml:"minScore"`
	DefaultWindowHours int                       `yaml:"defaultWindowHours"`
	MinWindowHours     int                       `yaml:"minWindowHours"`
	MaxWindowHours     int                       `yaml:"maxWindowHours"`
	SyncConcurrency    int                       `yaml:"syncConcurrency"`
	IngestConcurrency  int                       `yaml:"ingestConcurrency"`
	Keywords           clustering.KeywordOptions `yaml:"keywords"`
}

// LLMConfig defines how to contact the OpenAI-compatible chat API. An empty
// APIKey selects the template generator.
type LLMConfig struct {
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseUrl"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	Burst             int           `yaml:"burst"`
	MaxRetries        int           `yaml:"maxRetries"`
}

// PublisherConfig wires the WeChat publishing gateway.
type PublisherConfig struct {
	Provider          string        `yaml:"provider"`
	Endpoint          string        `yaml:"endpoint"`
	Token             string        `yaml:"token"`
	Mode              string        `yaml:"mode"`
	DryRun            bool          `yaml:"dryRun"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
}

// SourcesConfig lists hot-list platforms and the scanner strategy for each.
type SourcesConfig struct {
	TianAPIKey string         `yaml:"tianapiKey"`
	Items      []SourceConfig `yaml:"items"`
}

// SourceConfig describes a single platform with its scanner strategy.
type SourceConfig struct {
	Platform string            `yaml:"platform"`
	Scanner  string            `yaml:"scanner"`
	Endpoint string            `yaml:"endpoint"`
	Path     string            `yaml:"path"`
	Options  map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg, err := load(os.Getenv(configPathEnv), os.Getenv)
	if err != nil {
		log.Printf("config: %v (falling back to defaults)", err)
	}
	return cfg
}

// load never returns a zero Config: on a file error the defaults plus the
// environment overrides are still returned along with the error.
func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	var fileErr error
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			fileErr = fmt.Errorf("cannot read %s: %w", path, err)
		} else {
			fileCfg := Default()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				fileErr = fmt.Errorf("cannot parse %s: %w", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides(getenv)
	cfg.bindTimezone()

	if len(cfg.Sources.Items) == 0 {
		cfg.Sources.Items = Default().Sources.Items
	}
	return cfg, fileErr
}

func (c *Config) applyEnvOverrides(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("DATABASE_DSN", &c.Database.DSN)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("LOG_LEVEL", &c.Logging.Level)
	str("PIPELINE_API_SECRET", &c.Auth.APISecret)
	str("PIPELINE_SYNC_SECRET", &c.Auth.SyncSecret)
	str("RISK_POLICY", &c.Pipeline.RiskPolicy)
	str("LLM_API_KEY", &c.LLM.APIKey)
	str("LLM_BASE_URL", &c.LLM.BaseURL)
	str("LLM_MODEL", &c.LLM.Model)
	str("WECHAT_PUBLISH_ENDPOINT", &c.Publisher.Endpoint)
	str("WECHAT_PUBLISH_TOKEN", &c.Publisher.Token)
	str("WECHAT_PUBLISH_MODE", &c.Publisher.Mode)
	str("TIANAPI_KEY", &c.Sources.TianAPIKey)

	if v := strings.TrimSpace(getenv("OPPORTUNITY_MIN_SCORE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.MinScore = n
		} else {
			log.Printf("config: ignoring OPPORTUNITY_MIN_SCORE=%q", v)
		}
	}
	// dry run stays on unless explicitly disabled
	if v := strings.TrimSpace(getenv("WECHAT_PUBLISH_DRY_RUN")); v != "" {
		c.Publisher.DryRun = !strings.EqualFold(v, "false")
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// Default returns the built-in configuration used when no file or env override is present.
func Default() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute},
		Redis:    RedisConfig{TrendTTL: 5 * time.Minute},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			CronExpression: "*/30 * * * *",
			Timezone:       defaultTimezone,
			location:       tz,
		},
		Pipeline: PipelineConfig{
			RiskPolicy:         "balanced",
			MinScore:           45,
			DefaultWindowHours: 2,
			MinWindowHours:     1,
			MaxWindowHours:     24,
			SyncConcurrency:    4,
			IngestConcurrency:  8,
			Keywords:           clustering.DefaultKeywordOptions(),
		},
		LLM: LLMConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o-mini",
			Temperature:       0.4,
			Timeout:           60 * time.Second,
			RequestsPerMinute: 30,
			Burst:             1,
			MaxRetries:        2,
		},
		Publisher: PublisherConfig{
			Provider:          "wechat",
			Mode:              "draftbox",
			DryRun:            true,
			Timeout:           15 * time.Second,
			RequestsPerMinute: 20,
		},
		Sources: SourcesConfig{
			Items: []SourceConfig{
				{Platform: "weibo", Scanner: "tianapi", Path: "/weibohot/index"},
				{Platform: "douyin", Scanner: "tianapi", Path: "/douyinhot/index"},
				{Platform: "zhihu", Scanner: "tianapi", Path: "/zhihuhot/index"},
				{Platform: "baidu", Scanner: "tianapi", Path: "/nethot/index"},
				{Platform: "weixin", Scanner: "tianapi", Path: "/wxhottopic/index"},
			},
		},
	}
}
