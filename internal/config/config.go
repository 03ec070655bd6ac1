package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode              string        `mapstructure:"mode"`
	UIPort            int           `mapstructure:"ui_port"`
	StaticPath        string        `mapstructure:"static_path"`
	APIBase           string        `mapstructure:"api_base"`
	WSURL             string        `mapstructure:"ws_url"`
	Token             string        `mapstructure:"token"`
	Username          string        `mapstructure:"username"`
	Secret            string        `mapstructure:"secret"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("ui_port", 8090)
	v.SetDefault("static_path", "./web")
	v.SetDefault("api_base", "http://localhost:8080")
	v.SetDefault("ws_url", "ws://localhost:8080/ws")
	v.SetDefault("reconnect_delay", "3s")
	v.SetDefault("reconnect_attempts", 5)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	if tok := os.Getenv("APOLO_TOKEN"); tok != "" {
		v.Set("token", tok)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | UI: %d | API: %s\n", cfg.Mode, cfg.UIPort, cfg.APIBase)
	return &cfg, nil
}
