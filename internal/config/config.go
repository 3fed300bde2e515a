package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Insights  InsightsConfig  `yaml:"insights" mapstructure:"insights"`
	Habits    HabitsConfig    `yaml:"habits" mapstructure:"habits"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// InsightsConfig bounds the insight pipeline output.
type InsightsConfig struct {
	MaxInsights    int      `yaml:"max_insights" mapstructure:"max_insights"`
	MinPriority    int      `yaml:"min_priority" mapstructure:"min_priority"`
	EnabledSources []string `yaml:"enabled_sources" mapstructure:"enabled_sources"`
	HistoryDays    int      `yaml:"history_days" mapstructure:"history_days"`
}

// HabitsConfig configures habit analytics.
type HabitsConfig struct {
	ConsistencyWindowDays int `yaml:"consistency_window_days" mapstructure:"consistency_window_days"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst          int      `yaml:"burst" mapstructure:"burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AnthropicConfig holds Anthropic API settings for the daily brief.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VITALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "vitals.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("insights.max_insights", 7)
	v.SetDefault("insights.min_priority", 30)
	v.SetDefault("insights.enabled_sources", []string{})
	v.SetDefault("insights.history_days", 90)
	v.SetDefault("habits.consistency_window_days", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command needs. mode is one of "store",
// "serve" or "coach"; every problem found is reported in one error.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(p string) { problems = append(problems, p) }

	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			add("store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required")
		}
	}
	checkInsights := func() {
		if c.Insights.MaxInsights <= 0 {
			add("insights.max_insights must be > 0")
		}
		if c.Insights.MinPriority < 0 || c.Insights.MinPriority > 100 {
			add("insights.min_priority must be between 0 and 100")
		}
	}

	switch mode {
	case "store":
		checkStore()
		checkInsights()
	case "serve":
		checkStore()
		checkInsights()
		if c.Server.Port <= 0 {
			add("server.port must be > 0")
		}
		if c.Server.RateLimit <= 0 {
			add("server.rate_limit must be > 0")
		}
	case "coach":
		checkStore()
		checkInsights()
		if c.Anthropic.Key == "" {
			add("anthropic.key is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
