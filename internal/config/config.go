package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Warmer   WarmerConfig   `mapstructure:"warmer"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuditConfig selects the audit sink: a MySQL DSN wins over the file path,
// an empty file path means stdout.
type AuditConfig struct {
	FilePath string `mapstructure:"file_path"`
	MySQLDSN string `mapstructure:"mysql_dsn"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WarmerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("provider.base_url", "https://api.privatbank.ua/p24api/exchange_rates")
	viper.SetDefault("provider.timeout", 30*time.Second)
	viper.SetDefault("audit.file_path", "log.log")
	viper.SetDefault("audit.mysql_dsn", "")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("warmer.enabled", false)
	viper.SetDefault("warmer.interval", 10*time.Minute)

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/exchange-chat/")

	// Environment variable support
	viper.AutomaticEnv()

	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("provider.base_url", "PROVIDER_BASE_URL")
	viper.BindEnv("provider.timeout", "PROVIDER_TIMEOUT")
	viper.BindEnv("audit.file_path", "AUDIT_FILE_PATH")
	viper.BindEnv("audit.mysql_dsn", "AUDIT_MYSQL_DSN")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("warmer.enabled", "WARMER_ENABLED")
	viper.BindEnv("warmer.interval", "WARMER_INTERVAL")

	// Config file is optional; defaults and env vars cover the rest.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
