package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Config struct {
	Env         string
	Port        string
	DatabaseDSN string
	Redis       RedisConfig
	SMTP        SMTPConfig
	// BaseURL is the public URL of the app, used for links in emails.
	BaseURL    string
	AssetBase  string
	AppName    string
	CORSOrigin string
}

// Load reads config.yaml if present and lets CHATAPP_* environment variables
// override every key.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CHATAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("port", "8080")
	v.SetDefault("databasedsn", "host=localhost user=postgres password=postgres dbname=chatapp port=5432 sslmode=disable TimeZone=UTC")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Empty defaults register the keys so env overrides bind.
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "noreply@localhost")

	v.SetDefault("baseurl", "http://localhost:8080")
	v.SetDefault("assetbase", "")
	v.SetDefault("appname", "Chat App")
	v.SetDefault("corsorigin", "")
}

// Validate rejects configurations that cannot serve requests. Outside dev the
// mail relay and CORS origin must be configured explicitly.
func Validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("port must not be empty")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("database dsn must not be empty")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("redis addr must not be empty")
	}
	if cfg.Env != "dev" {
		if cfg.SMTP.Host == "" {
			return errors.New("smtp host required outside dev")
		}
		if cfg.CORSOrigin == "" {
			return errors.New("cors origin required outside dev")
		}
	}
	return nil
}
