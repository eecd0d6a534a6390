package config

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"
)

type (
	Config struct {
		Host       string `mapstructure:"HOST"`
		Port       string `mapstructure:"PORT"`
		DBHost     string `mapstructure:"DB_HOST"`
		DBPort     string `mapstructure:"DB_PORT"`
		DBUser     string `mapstructure:"DB_USER"`
		DBPassword string `mapstructure:"DB_PASSWORD"`
		DBName     string `mapstructure:"DB_NAME"`
		DBSSLMode  string `mapstructure:"DB_SSL_MODE"`

		RedisAddr     string `mapstructure:"REDIS_ADDR"`
		RedisPassword string `mapstructure:"REDIS_PASSWORD"`

		IdentityBaseURL string `mapstructure:"IDENTITY_BASE_URL"`
		IdentityAPIKey  string `mapstructure:"IDENTITY_API_KEY"`

		MediaBaseURL   string `mapstructure:"MEDIA_BASE_URL"`
		MediaAPIKey    string `mapstructure:"MEDIA_API_KEY"`
		MediaAPISecret string `mapstructure:"MEDIA_API_SECRET"`
		MediaFolder    string `mapstructure:"MEDIA_FOLDER"`
	}
)

func NewConfig() (*Config, error) {
	viper.SetEnvPrefix("HOMELET")

	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "1323")
	viper.SetDefault("DB_HOST", "0.0.0.0")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "db")
	viper.SetDefault("DB_SSL_MODE", sslModeDisable)
	viper.SetDefault("REDIS_ADDR", "0.0.0.0:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("IDENTITY_BASE_URL", "http://0.0.0.0:4000")
	viper.SetDefault("IDENTITY_API_KEY", "")
	viper.SetDefault("MEDIA_BASE_URL", "http://0.0.0.0:4001")
	viper.SetDefault("MEDIA_API_KEY", "")
	viper.SetDefault("MEDIA_API_SECRET", "")
	viper.SetDefault("MEDIA_FOLDER", "homelet")

	envs := []string{
		"HOST", "PORT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
		"REDIS_ADDR", "REDIS_PASSWORD",
		"IDENTITY_BASE_URL", "IDENTITY_API_KEY",
		"MEDIA_BASE_URL", "MEDIA_API_KEY", "MEDIA_API_SECRET", "MEDIA_FOLDER",
	}
	for _, key := range envs {
		if err := viper.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	validSSLValues := []string{sslModeDisable, sslModeRequire}
	valid := false
	for _, validValue := range validSSLValues {
		if cfg.DBSSLMode == validValue {
			valid = true
			break
		}
	}
	if !valid {
		return errors.New(fmt.Sprintf("DB SSL mode is invalid: %s", cfg.DBSSLMode))
	}

	if cfg.IdentityBaseURL == "" {
		return errors.New("identity base URL is required")
	}
	if cfg.MediaBaseURL == "" {
		return errors.New("media base URL is required")
	}

	return nil
}
