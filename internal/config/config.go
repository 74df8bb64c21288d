package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Apollo    ApolloConfig    `yaml:"apollo" mapstructure:"apollo"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Dispatch  DispatchConfig  `yaml:"dispatch" mapstructure:"dispatch"`
	Journal   JournalConfig   `yaml:"journal" mapstructure:"journal"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Limits    LimitsConfig    `yaml:"limits" mapstructure:"limits"`
	Schema    SchemaConfig    `yaml:"schema" mapstructure:"schema"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// NotionConfig holds Notion API credentials and database IDs.
type NotionConfig struct {
	Token       string `yaml:"token" mapstructure:"token"`
	ProspectDB  string `yaml:"prospect_db" mapstructure:"prospect_db"`
	CompanyDB   string `yaml:"company_db" mapstructure:"company_db"`
	DNCDB       string `yaml:"dnc_db" mapstructure:"dnc_db"`
	RateLimit   int    `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApolloConfig holds the discovery scraper settings.
type ApolloConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	ActorID string `yaml:"actor_id" mapstructure:"actor_id"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EnrichConfig holds the enrichment API settings.
type EnrichConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds the drafting model settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DispatchConfig holds the sequencing platform settings.
type DispatchConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	SequenceID string `yaml:"sequence_id" mapstructure:"sequence_id"`
}

// JournalConfig configures the local run journal.
type JournalConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Size    int `yaml:"size" mapstructure:"size"`
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RetryConfig configures the bounded retry policy for external calls.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// LimitsConfig holds the default and per-service traffic limits.
type LimitsConfig struct {
	Default    resilience.ServiceLimits            `yaml:"default" mapstructure:"default"`
	PerService map[string]resilience.ServiceLimits `yaml:"per_service" mapstructure:"per_service"`
}

// SchemaConfig optionally points at a YAML schema set overriding the
// embedded defaults.
type SchemaConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// RetryPolicy converts the configured retry settings into the resilience
// layer's config, keeping that package's defaults for anything unset.
func (c RetryConfig) RetryPolicy() resilience.RetryConfig {
	policy := resilience.DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		policy.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoff > 0 {
		policy.InitialBackoff = c.InitialBackoff
	}
	if c.MaxBackoff > 0 {
		policy.MaxBackoff = c.MaxBackoff
	}
	return policy
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys default to empty so env overrides bind.
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.prospect_db", "")
	v.SetDefault("notion.company_db", "")
	v.SetDefault("notion.dnc_db", "")
	v.SetDefault("apollo.token", "")
	v.SetDefault("apollo.actor_id", "")
	v.SetDefault("enrich.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("dispatch.key", "")
	v.SetDefault("dispatch.sequence_id", "")
	v.SetDefault("schema.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("notion.rate_limit", 3)
	v.SetDefault("apollo.base_url", "https://api.apify.com/v2")
	v.SetDefault("enrich.base_url", "https://api.enrich.sells.dev")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("dispatch.base_url", "https://api.saleshandy.com")
	v.SetDefault("journal.driver", "sqlite")
	v.SetDefault("journal.dsn", "outreach.db")
	v.SetDefault("batch.size", 50)
	v.SetDefault("batch.workers", 4)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", "500ms")
	v.SetDefault("retry.max_backoff", "30s")
	v.SetDefault("limits.default.max_in_flight", 4)
	v.SetDefault("limits.default.min_interval", "250ms")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
