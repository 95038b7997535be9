package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	domainsync "agroedge/internal/domain/sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	defaultEnv                = EnvLocal
	defaultSyncIntervalMs     = 300000
	defaultBatchSize          = 100
	defaultRetryAttempts      = 3
	defaultRetryDelayMs       = 5000
	defaultConnectTimeoutMs   = 30000
	defaultMaxBatchesPerCycle = 2
	defaultListenAddress      = ":8090"
	defaultDataPath           = "edgehub.db"
	defaultHealthIntervalMs   = 30000
	// DevJWTSecret подставляется вне prod, если секрет не задан
	DevJWTSecret = "agroedge-dev-secret"
)

// Config - настройки узла edge-hub
type Config struct {
	Env                string `mapstructure:"app_env"`
	NodeID             string `mapstructure:"node_id"`
	CloudEndpoint      string `mapstructure:"cloud_endpoint"`
	APIKey             string `mapstructure:"api_key"`
	SyncIntervalMs     int    `mapstructure:"sync_interval_ms"`
	BatchSize          int    `mapstructure:"batch_size"`
	RetryAttempts      int    `mapstructure:"retry_attempts"`
	RetryDelayMs       int    `mapstructure:"retry_delay_ms"`
	ConnectTimeoutMs   int    `mapstructure:"connect_timeout_ms"`
	MaxBatchesPerCycle int    `mapstructure:"max_batches_per_cycle"`
	DataPath           string `mapstructure:"data_path"`
	ListenAddress      string `mapstructure:"listen_address"`
	RedisURL           string `mapstructure:"redis_url"`
	JWTSecret          string `mapstructure:"jwt_secret"`
	HealthIntervalMs   int    `mapstructure:"health_interval_ms"`
}

// SetDefaults регистрирует значения по умолчанию и привязку к окружению
func SetDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_env", defaultEnv)
	v.SetDefault("node_id", "")
	v.SetDefault("cloud_endpoint", "")
	v.SetDefault("api_key", "")
	v.SetDefault("sync_interval_ms", defaultSyncIntervalMs)
	v.SetDefault("batch_size", defaultBatchSize)
	v.SetDefault("retry_attempts", defaultRetryAttempts)
	v.SetDefault("retry_delay_ms", defaultRetryDelayMs)
	v.SetDefault("connect_timeout_ms", defaultConnectTimeoutMs)
	v.SetDefault("max_batches_per_cycle", defaultMaxBatchesPerCycle)
	v.SetDefault("data_path", defaultDataPath)
	v.SetDefault("listen_address", defaultListenAddress)
	v.SetDefault("redis_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("health_interval_ms", defaultHealthIntervalMs)
}

// LoadEnvFile загружает .env из текущей или родительской директории, если он есть
func LoadEnvFile() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
		return
	}
}

// Load читает конфигурацию из v и сразу проверяет ее
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	cfg.CloudEndpoint = strings.TrimRight(strings.TrimSpace(cfg.CloudEndpoint), "/")
	if cfg.NodeID == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.NodeID = host
		} else {
			cfg.NodeID = "edge-hub"
		}
	}

	if cfg.JWTSecret == "" && cfg.Env != EnvProd {
		cfg.JWTSecret = DevJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad загружает конфигурацию узла из .env, файла и окружения
func MustLoad() *Config {
	LoadEnvFile()

	cfg, err := Load(viper.GetViper())
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Validate возвращает *sync.ConfigurationError для первого недопустимого поля
func (c *Config) Validate() error {
	switch {
	case c.CloudEndpoint == "":
		return &domainsync.ConfigurationError{Field: "cloud_endpoint", Reason: "не может быть пустым"}
	case !strings.HasPrefix(c.CloudEndpoint, "http://") && !strings.HasPrefix(c.CloudEndpoint, "https://"):
		return &domainsync.ConfigurationError{Field: "cloud_endpoint", Reason: "должен начинаться с http:// или https://"}
	case c.BatchSize <= 0:
		return &domainsync.ConfigurationError{Field: "batch_size", Reason: "должен быть больше нуля"}
	case c.SyncIntervalMs <= 0:
		return &domainsync.ConfigurationError{Field: "sync_interval_ms", Reason: "должен быть больше нуля"}
	case c.RetryAttempts <= 0:
		return &domainsync.ConfigurationError{Field: "retry_attempts", Reason: "должен быть больше нуля"}
	case c.RetryDelayMs < 0:
		return &domainsync.ConfigurationError{Field: "retry_delay_ms", Reason: "не может быть отрицательным"}
	case c.ConnectTimeoutMs <= 0:
		return &domainsync.ConfigurationError{Field: "connect_timeout_ms", Reason: "должен быть больше нуля"}
	case c.MaxBatchesPerCycle <= 0:
		return &domainsync.ConfigurationError{Field: "max_batches_per_cycle", Reason: "должен быть больше нуля"}
	case c.HealthIntervalMs <= 0:
		return &domainsync.ConfigurationError{Field: "health_interval_ms", Reason: "должен быть больше нуля"}
	case c.JWTSecret == "":
		return &domainsync.ConfigurationError{Field: "jwt_secret", Reason: "обязателен в prod"}
	case c.Env != EnvLocal && c.Env != EnvDev && c.Env != EnvProd:
		return &domainsync.ConfigurationError{Field: "app_env", Reason: fmt.Sprintf("неизвестное окружение %q", c.Env)}
	}
	return nil
}

func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMs) * time.Millisecond
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalMs) * time.Millisecond
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
