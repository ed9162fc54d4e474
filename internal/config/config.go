package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Download  DownloadConfig
	Engine    EngineConfig
	Retention RetentionConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type AuthConfig struct {
	Password      string
	TokenSecret   string
	TokenLifetime int // hours
	LoginDelay    time.Duration
}

type DownloadConfig struct {
	Dir           string
	MaxActive     int
	MaxFileSizeMB int
}

type EngineConfig struct {
	Binary        string
	CookiesFile   string
	CookiesBase64 string
}

type RetentionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	ProbePerMin int
	JobsPerHour int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("auth.password", "changeme")
	viper.SetDefault("auth.token_secret", "")
	viper.SetDefault("auth.token_lifetime", 24)
	viper.SetDefault("auth.login_delay", "1s")
	viper.SetDefault("download.dir", "./downloads")
	viper.SetDefault("download.max_active", 3)
	viper.SetDefault("download.max_file_size_mb", 500)
	viper.SetDefault("engine.binary", "yt-dlp")
	viper.SetDefault("engine.cookies_file", "./cookies.txt")
	viper.SetDefault("engine.cookies_base64", "")
	viper.SetDefault("retention.ttl", "1h")
	viper.SetDefault("retention.sweep_interval", "5m")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.probe_per_min", 30)
	viper.SetDefault("ratelimit.jobs_per_hour", 60)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Auth: AuthConfig{
			Password:      viper.GetString("auth.password"),
			TokenSecret:   viper.GetString("auth.token_secret"),
			TokenLifetime: viper.GetInt("auth.token_lifetime"),
			LoginDelay:    viper.GetDuration("auth.login_delay"),
		},
		Download: DownloadConfig{
			Dir:           viper.GetString("download.dir"),
			MaxActive:     viper.GetInt("download.max_active"),
			MaxFileSizeMB: viper.GetInt("download.max_file_size_mb"),
		},
		Engine: EngineConfig{
			Binary:        viper.GetString("engine.binary"),
			CookiesFile:   viper.GetString("engine.cookies_file"),
			CookiesBase64: viper.GetString("engine.cookies_base64"),
		},
		Retention: RetentionConfig{
			TTL:           viper.GetDuration("retention.ttl"),
			SweepInterval: viper.GetDuration("retention.sweep_interval"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			ProbePerMin: viper.GetInt("ratelimit.probe_per_min"),
			JobsPerHour: viper.GetInt("ratelimit.jobs_per_hour"),
		},
	}

	return cfg, nil
}
