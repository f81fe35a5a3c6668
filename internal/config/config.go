// Package config loads application configuration from an optional
// config.yaml, CMNPANEL_* environment overrides, and defaults, and
// bootstraps the global logger.
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
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Panel PanelConfig `yaml:"panel" mapstructure:"panel"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres warehouse.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PanelConfig configures the rebuild.
type PanelConfig struct {
	// Years is the study window, ascending. The final year anchors the
	// roster transition classification.
	Years []int `yaml:"years" mapstructure:"years"`

	// ProgrammedRecordType filters which registrations count as programmed.
	ProgrammedRecordType string `yaml:"programmed_record_type" mapstructure:"programmed_record_type"`
}

// LogConfig configures the global zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional), CMNPANEL_*
// environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CMNPANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. database_url defaults to empty so viper knows the key;
	// AutomaticEnv only surfaces env vars for keys it has seen.
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("panel.years", []int{2022, 2023, 2024, 2025})
	v.SetDefault("panel.programmed_record_type", "BIEN")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)

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

// Validate checks the configuration before running database-touching
// commands.
func (c *Config) Validate() error {
	var problems []string

	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required (CMNPANEL_STORE_DATABASE_URL)")
	}
	if len(c.Panel.Years) == 0 {
		problems = append(problems, "panel.years must list at least one year")
	}
	for i := 1; i < len(c.Panel.Years); i++ {
		if c.Panel.Years[i] <= c.Panel.Years[i-1] {
			problems = append(problems, "panel.years must be strictly ascending")
			break
		}
	}
	if c.Panel.ProgrammedRecordType == "" {
		problems = append(problems, "panel.programmed_record_type must not be empty")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
