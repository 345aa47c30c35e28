package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	ProvidersFile string `mapstructure:"PROVIDERS_FILE"`

	StageMaxAttempts  int    `mapstructure:"STAGE_MAX_ATTEMPTS"`
	StageRetryBackoff string `mapstructure:"STAGE_RETRY_BACKOFF"`
	PollIntervalSecs  int    `mapstructure:"POLL_INTERVAL_SECONDS"`

	WebhookMaxAttempts  int    `mapstructure:"WEBHOOK_MAX_ATTEMPTS"`
	WebhookRetryBackoff string `mapstructure:"WEBHOOK_RETRY_BACKOFF"`

	// ExtraSensitiveKeys is a comma-separated extension of the redaction list
	ExtraSensitiveKeys string `mapstructure:"EXTRA_SENSITIVE_KEYS"`
}

func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PROVIDERS_FILE", "providers.yaml")
	viper.SetDefault("POLL_INTERVAL_SECONDS", 15)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

// PollInterval returns the deploy poll interval as a duration
func (c *Config) PollInterval() time.Duration {
	secs := c.PollIntervalSecs
	if secs <= 0 {
		secs = 15
	}
	return time.Duration(secs) * time.Second
}

// SensitiveKeys returns the parsed redaction extension list
func (c *Config) SensitiveKeys() []string {
	if c.ExtraSensitiveKeys == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(c.ExtraSensitiveKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
