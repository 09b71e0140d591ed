package coldstorage

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Provider        string `mapstructure:"Provider"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.Provider == "" {
		cfg.Provider = "s3"
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("cold storage credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("cold storage bucket is required")
	}

	// Провайдер yandex — это S3-совместимый API с фиксированным эндпоинтом
	if cfg.Provider == "yandex" && cfg.Endpoint == "" {
		cfg.Endpoint = "https://storage.yandexcloud.net"
	}
	if cfg.Region == "" {
		cfg.Region = "ru-central1"
	}

	return &cfg, nil
}
