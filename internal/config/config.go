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
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Models    ModelsConfig    `yaml:"models" mapstructure:"models"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	DefaultModel string `yaml:"default_model" mapstructure:"default_model"`
}

// ModelsConfig holds the ordered candidate model lists per preset.
type ModelsConfig struct {
	Fast    []string `yaml:"fast" mapstructure:"fast"`
	Quality []string `yaml:"quality" mapstructure:"quality"`
}

// EnrichConfig configures the batch runner around the pipeline.
type EnrichConfig struct {
	Mode           string `yaml:"mode" mapstructure:"mode"`
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	ContactDelayMS int    `yaml:"contact_delay_ms" mapstructure:"contact_delay_ms"`
	ContextFile    string `yaml:"context_file" mapstructure:"context_file"`
	SkipVerify     bool   `yaml:"skip_verify" mapstructure:"skip_verify"`
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
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.default_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("models.fast", []string{"claude-haiku-4-5-20251001"})
	v.SetDefault("models.quality", []string{
		"claude-sonnet-4-5-20250929",
		"claude-opus-4-6",
	})
	v.SetDefault("enrich.mode", "fast")
	v.SetDefault("enrich.batch_size", 5)
	v.SetDefault("enrich.contact_delay_ms", 2000)

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
