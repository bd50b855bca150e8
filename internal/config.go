package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wallboard/wallboard_screen/internal/project"
	"github.com/wallboard/wallboard_screen/internal/screen"
	"github.com/wallboard/wallboard_screen/internal/websocket"
)

const (
	DefaultConfigFile = "files/config.yaml"
	envPrefix         = "WALLBOARD"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Channel websocket.Config `mapstructure:"channel"`
	API     project.Config   `mapstructure:"api"`
	Auth    AuthConfig       `mapstructure:"auth"`
	Screen  screen.Config    `mapstructure:"screen"`
	Status  StatusConfig     `mapstructure:"status"`
	Log     LogConfig        `mapstructure:"log"`
}

type AuthConfig struct {
	// Token is the user bearer token. Empty runs the screen anonymously.
	Token string `mapstructure:"token"`
}

type StatusConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// NewViper returns a viper instance with every key defaulted and bound to
// WALLBOARD_* environment variables, e.g. WALLBOARD_CHANNEL_URL.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("channel.url", "ws://localhost:8080/websocket")
	v.SetDefault("channel.heartbeat_incoming", 10*time.Second)
	v.SetDefault("channel.heartbeat_outgoing", 10*time.Second)
	v.SetDefault("channel.reconnect_delay", 5*time.Second)
	v.SetDefault("channel.handshake_timeout", 10*time.Second)
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("auth.token", "")
	v.SetDefault("screen.code", 0)
	v.SetDefault("screen.token", "")
	v.SetDefault("screen.retry_delay", 5*time.Second)
	v.SetDefault("status.addr", ":8081")
	v.SetDefault("status.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads .env, then configFile, into v. The default config file is
// optional; an explicitly named one must exist.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	loadEnvFiles()

	optional := configFile == ""
	if optional {
		configFile = DefaultConfigFile
	}

	if _, err := os.Stat(configFile); err == nil || !optional {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Channel.URL == "" {
		return fmt.Errorf("%w: channel.url is required", ErrInvalidConfig)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.Screen.Code != 0 && !screen.Code(c.Screen.Code).Valid() {
		return fmt.Errorf("%w: screen.code must have six digits", ErrInvalidConfig)
	}
	return nil
}

func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
