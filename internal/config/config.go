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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Linker LinkerConfig `yaml:"linker" mapstructure:"linker"`
	Scrape ScrapeConfig `yaml:"scrape" mapstructure:"scrape"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LinkerConfig configures the linking pipeline.
type LinkerConfig struct {
	MinConfidence  float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	BatchWorkers   int     `yaml:"batch_workers" mapstructure:"batch_workers"`
	SocialTextCap  int     `yaml:"social_text_cap" mapstructure:"social_text_cap"`
	ArticleTextCap int     `yaml:"article_text_cap" mapstructure:"article_text_cap"`
}

// ScrapeConfig configures article fetching for the slow pass.
type ScrapeConfig struct {
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxContentLength int      `yaml:"max_content_length" mapstructure:"max_content_length"`
	PerHostRPS       float64  `yaml:"per_host_rps" mapstructure:"per_host_rps"`
	MaxAttempts      int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	Workers          int      `yaml:"workers" mapstructure:"workers"`
	BlockedHosts     []string `yaml:"blocked_hosts" mapstructure:"blocked_hosts"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("TICKERLINKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "ticker-linker.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("linker.min_confidence", 0.5)
	v.SetDefault("linker.batch_workers", 4)
	v.SetDefault("linker.social_text_cap", 500)
	v.SetDefault("linker.article_text_cap", 1000)
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.max_content_length", 50000)
	v.SetDefault("scrape.per_host_rps", 1.0)
	v.SetDefault("scrape.max_attempts", 1)
	v.SetDefault("scrape.workers", 8)

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
