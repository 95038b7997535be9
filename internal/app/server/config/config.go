package config

import (
	"fmt"
	"strings"

	"agroedge/internal/config"
	domainsync "agroedge/internal/domain/sync"

	"github.com/spf13/viper"
)

const (
	defaultRunAddress     = ":8080"
	defaultMigrationsPath = "migrations/postgres"
)

// Config - настройки облачного сервиса
type Config struct {
	Env            string `mapstructure:"app_env"`
	RunAddress     string `mapstructure:"run_address"`
	DatabaseURI    string `mapstructure:"database_uri"`
	MigrationsPath string `mapstructure:"migrations_path"`
	// APIKeyHash - bcrypt-хэш общего ключа узлов, необязателен
	APIKeyHash string `mapstructure:"api_key_hash"`
	JWTSecret  string `mapstructure:"jwt_secret"`
}

func SetDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_env", config.EnvLocal)
	v.SetDefault("run_address", defaultRunAddress)
	v.SetDefault("database_uri", "")
	v.SetDefault("migrations_path", defaultMigrationsPath)
	v.SetDefault("api_key_hash", "")
	v.SetDefault("jwt_secret", "")
}

func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}
	if cfg.JWTSecret == "" && cfg.Env != config.EnvProd {
		cfg.JWTSecret = config.DevJWTSecret
	}

	switch {
	case cfg.DatabaseURI == "":
		return nil, &domainsync.ConfigurationError{Field: "database_uri", Reason: "не может быть пустым"}
	case cfg.JWTSecret == "":
		return nil, &domainsync.ConfigurationError{Field: "jwt_secret", Reason: "обязателен в prod"}
	case cfg.APIKeyHash != "" && !strings.HasPrefix(cfg.APIKeyHash, "$2"):
		return nil, &domainsync.ConfigurationError{Field: "api_key_hash", Reason: "ожидается bcrypt-хэш"}
	}
	return &cfg, nil
}

// MustLoad загружает конфигурацию из .env и окружения
func MustLoad() *Config {
	config.LoadEnvFile()

	cfg, err := Load(viper.GetViper())
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}
