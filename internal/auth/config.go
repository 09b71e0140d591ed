package auth

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	JWTSecret string `mapstructure:"JWTSecret"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.BindEnv("JWTSecret", "AUTH_JWT_SECRET")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = v.GetString("AUTH_JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWTSecret is required")
	}

	return &cfg, nil
}
