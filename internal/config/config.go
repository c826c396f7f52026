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
	Store           StoreConfig           `yaml:"store" mapstructure:"store"`
	Targetron       TargetronConfig       `yaml:"targetron" mapstructure:"targetron"`
	MillionVerifier MillionVerifierConfig `yaml:"millionverifier" mapstructure:"millionverifier"`
	Instantly       InstantlyConfig       `yaml:"instantly" mapstructure:"instantly"`
	Queue           QueueConfig           `yaml:"queue" mapstructure:"queue"`
	Scrape          ScrapeConfig          `yaml:"scrape" mapstructure:"scrape"`
	Enrich          EnrichConfig          `yaml:"enrich" mapstructure:"enrich"`
	Storage         StorageConfig         `yaml:"storage" mapstructure:"storage"`
	Server          ServerConfig          `yaml:"server" mapstructure:"server"`
	Log             LogConfig             `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the queue database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// TargetronConfig holds lead provider settings. The API key itself lives
// in the settings table, not here.
type TargetronConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

// MillionVerifierConfig holds email verification provider settings.
type MillionVerifierConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	PacingMs  int    `yaml:"pacing_ms" mapstructure:"pacing_ms"`
}

// InstantlyConfig configures the optional campaign lead push.
type InstantlyConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// QueueConfig configures job claiming and stale-job reaping.
type QueueConfig struct {
	SettingsKey      string `yaml:"settings_key" mapstructure:"settings_key"`
	StaleAfterMins   int    `yaml:"stale_after_mins" mapstructure:"stale_after_mins"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
}

// ScrapeConfig configures the two-phase provider fetch.
type ScrapeConfig struct {
	FetchAttempts int `yaml:"fetch_attempts" mapstructure:"fetch_attempts"`
	RetryBaseMs   int `yaml:"retry_base_ms" mapstructure:"retry_base_ms"`
}

// EnrichConfig configures the postal-code enrichment source.
type EnrichConfig struct {
	AreaCodesPath string `yaml:"area_codes_path" mapstructure:"area_codes_path"`
}

// StorageConfig configures the artifact upload sink.
type StorageConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	SupabaseURL string `yaml:"supabase_url" mapstructure:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key" mapstructure:"supabase_key"`
	Bucket      string `yaml:"bucket" mapstructure:"bucket"`
	FTPAddr     string `yaml:"ftp_addr" mapstructure:"ftp_addr"`
	FTPUser     string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPassword string `yaml:"ftp_password" mapstructure:"ftp_password"`
	FTPDir      string `yaml:"ftp_dir" mapstructure:"ftp_dir"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "scraper.db")
	v.SetDefault("targetron.base_url", "https://dahab.app.outscraper.com")
	v.SetDefault("targetron.timeout_ms", 5000)
	v.SetDefault("millionverifier.base_url", "https://api.millionverifier.com")
	v.SetDefault("millionverifier.timeout_ms", 5000)
	v.SetDefault("millionverifier.pacing_ms", 300)
	v.SetDefault("instantly.enabled", false)
	v.SetDefault("instantly.base_url", "https://api.instantly.ai/api/v2/leads")
	v.SetDefault("queue.settings_key", "scraperSettings")
	v.SetDefault("queue.stale_after_mins", 30)
	v.SetDefault("queue.poll_interval_secs", 60)
	v.SetDefault("scrape.fetch_attempts", 3)
	v.SetDefault("scrape.retry_base_ms", 1000)
	v.SetDefault("enrich.area_codes_path", "enrich-area-codes.xlsx")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.dir", "scrapes")
	v.SetDefault("storage.bucket", "scrapes")
	v.SetDefault("server.port", 8080)
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
