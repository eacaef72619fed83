// Package config loads and validates application configuration from
// callinsight.yaml and CALLINSIGHT_ environment variables, and installs the
// global zap logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/call-insight/internal/scorer"
)

// Config holds the full application configuration.
type Config struct {
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Transcription TranscriptionConfig `yaml:"transcription" mapstructure:"transcription"`
	Scoring       scorer.Config       `yaml:"scoring" mapstructure:"scoring"`
	Lexicon       LexiconConfig       `yaml:"lexicon" mapstructure:"lexicon"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// TranscriptionConfig configures the speech-to-text provider client and the
// guards around it.
type TranscriptionConfig struct {
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Language    string        `yaml:"language" mapstructure:"language"`
	TimeoutSecs int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	Retry       RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig configures transient-failure retries on provider calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the circuit breaker guarding the provider.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// LexiconConfig points at an optional phrase-table override file. Empty means
// the builtin lexicon.
type LexiconConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetConfigName("callinsight")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CALLINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("transcription.base_url", "http://localhost:8085")
	v.SetDefault("transcription.model", "whisper-large-v3")
	v.SetDefault("transcription.language", "he")
	v.SetDefault("transcription.timeout_secs", 120)
	v.SetDefault("transcription.rate_limit", 1.0)
	v.SetDefault("transcription.retry.max_attempts", 3)
	v.SetDefault("transcription.retry.initial_backoff_ms", 250)
	v.SetDefault("transcription.retry.max_backoff_ms", 2000)
	v.SetDefault("transcription.circuit.failure_threshold", 5)
	v.SetDefault("transcription.circuit.reset_timeout_secs", 30)

	// Scoring defaults mirror the engine's tuned values so a config file only
	// has to name the knobs it changes.
	sc := scorer.DefaultConfig()
	v.SetDefault("scoring.urgency_weight", sc.UrgencyWeight)
	v.SetDefault("scoring.budget_weight", sc.BudgetWeight)
	v.SetDefault("scoring.interest_weight", sc.InterestWeight)
	v.SetDefault("scoring.engagement_weight", sc.EngagementWeight)
	v.SetDefault("scoring.no_signal_floor", sc.NoSignalFloor)
	v.SetDefault("scoring.match_base", sc.MatchBase)
	v.SetDefault("scoring.per_extra_word", sc.PerExtraWord)
	v.SetDefault("scoring.min_reliable_words", sc.MinReliableWords)
	v.SetDefault("scoring.target_density", sc.TargetDensity)
	v.SetDefault("scoring.high_potential", sc.HighPotential)
	v.SetDefault("scoring.low_potential", sc.LowPotential)

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

// Validate checks the loaded configuration before any subsystem starts.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return eris.Errorf("config: server port %d out of range", c.Server.Port)
	}
	if c.Transcription.TimeoutSecs <= 0 {
		return eris.New("config: transcription timeout must be positive")
	}
	if c.Transcription.RateLimit < 0 {
		return eris.New("config: transcription rate limit must be >= 0")
	}
	if err := c.Scoring.Validate(); err != nil {
		return eris.Wrap(err, "config: scoring")
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
