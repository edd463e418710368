package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// SessionConfig selects where the durable session record lives. Backend is
// "file" or "redis".
type SessionConfig struct {
	Backend   string
	FilePath  string
	KeyPrefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MockAPIConfig struct {
	Host             string
	Port             int
	JWTSecret        string
	TokenTTL         time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	AllowCORSOrigins []string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	API         APIConfig
	RateLimit   RateLimitConfig
	Session     SessionConfig
	Redis       RedisConfig
	MockAPI     MockAPIConfig
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("ABISAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Session.FilePath == "" {
		cfg.Session.FilePath = defaultSessionPath()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("loglevel", "")

	v.SetDefault("api.baseurl", "http://localhost:8080")
	v.SetDefault("api.timeout", "8s")

	v.SetDefault("ratelimit.rps", 10.0)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("session.backend", "file")
	v.SetDefault("session.keyprefix", "abisal:session")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mockapi.host", "0.0.0.0")
	v.SetDefault("mockapi.port", 8080)
	v.SetDefault("mockapi.jwtsecret", "mock-dev-secret")
	v.SetDefault("mockapi.tokenttl", "24h")
	v.SetDefault("mockapi.readtimeout", "10s")
	v.SetDefault("mockapi.writetimeout", "15s")
	v.SetDefault("mockapi.idletimeout", "60s")
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".abisal", "session.json")
	}
	return filepath.Join(home, ".abisal", "session.json")
}
