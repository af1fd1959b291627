package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	QIS      QISConfig      `mapstructure:"qis"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
}

// QISConfig holds the remote catalog endpoint and request profile. The
// header set is fixed configuration, never negotiated per call.
type QISConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	StartRoot      string `mapstructure:"start_root"`
	RequestDelayMS int    `mapstructure:"request_delay_ms"`
	Timeout        int    `mapstructure:"timeout"`
	MaxDepth       int    `mapstructure:"max_depth"`
	UserAgent      string `mapstructure:"user_agent"`
	Accept         string `mapstructure:"accept"`
	AcceptLanguage string `mapstructure:"accept_language"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// ScrapeConfig selects what a standalone run works on. Roots narrows the
// scan to caller-supplied subtrees; Selected names the node identifiers to
// extract events from (empty means every event-bearing node).
type ScrapeConfig struct {
	User     string   `mapstructure:"user"`
	Roots    []string `mapstructure:"roots"`
	Selected []string `mapstructure:"selected"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("qis.base_url", "https://qis.server.uni-frankfurt.de")
	viper.SetDefault("qis.start_root", "118146%7C118447")
	viper.SetDefault("qis.request_delay_ms", 1200)
	viper.SetDefault("qis.timeout", 30)
	viper.SetDefault("qis.max_depth", 6)
	viper.SetDefault("qis.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	viper.SetDefault("qis.accept", "text/html,application/xhtml+xml")
	viper.SetDefault("qis.accept_language", "de-DE,de;q=0.9")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "kurskompass")
	viper.SetDefault("database.user", "kurskompass_user")
	viper.SetDefault("database.password", "kurskompass_pass")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.database", 0)

	viper.SetDefault("scrape.user", "default")
}
