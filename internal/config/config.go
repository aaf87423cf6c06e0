package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Grekus14/MeChat/internal/database"
	"github.com/Grekus14/MeChat/internal/log"
	"github.com/Grekus14/MeChat/internal/storage"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Database  database.Config
	Redis     RedisConfig
	Auth      AuthConfig
	Chat      ChatConfig
	Storage   StorageConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type RedisConfig struct {
	Address     string        `mapstructure:"address"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	CachePrefix string        `mapstructure:"cache_prefix"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type AuthConfig struct {
	Issuer          string        `mapstructure:"issuer"`
	AccessDuration  time.Duration `mapstructure:"access_duration"`
	RefreshDuration time.Duration `mapstructure:"refresh_duration"`
}

type ChatConfig struct {
	MaxWordLength int `mapstructure:"max_word_length"`
}

type StorageConfig struct {
	Backend         string              `mapstructure:"backend"` // s3, local
	AvatarPrefix    string              `mapstructure:"avatar_prefix"`
	PresignExpiry   time.Duration       `mapstructure:"presign_expiry"`
	AvatarURLExpiry time.Duration       `mapstructure:"avatar_url_expiry"`
	S3              storage.S3Config    `mapstructure:"s3"`
	Local           storage.LocalConfig `mapstructure:"local"`
}

// Load reads configuration from ./config/config.yaml plus environment
// variable overrides, with defaults for every key.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, rely on defaults and env vars.
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mechat")
	v.SetDefault("database.password", "mechat")
	v.SetDefault("database.dbname", "mechat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "mechat.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_prefix", "mechat:users")
	v.SetDefault("redis.cache_ttl", "5m")
	v.SetDefault("auth.issuer", "mechat")
	v.SetDefault("auth.access_duration", "15m")
	v.SetDefault("auth.refresh_duration", "720h")
	v.SetDefault("chat.max_word_length", 15)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.avatar_prefix", "avatars")
	v.SetDefault("storage.presign_expiry", "1m")
	v.SetDefault("storage.avatar_url_expiry", "15m")
	v.SetDefault("storage.local.base_path", "./uploads")
	v.SetDefault("storage.s3.region", "eu-west-2")
	v.SetDefault("storage.s3.bucket", "mechat-profile-images")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.s3.access_key_id", "AWS_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Redis.CacheTTL = parseDuration(v, "redis.cache_ttl", 5*time.Minute)
	cfg.Auth.AccessDuration = parseDuration(v, "auth.access_duration", 15*time.Minute)
	cfg.Auth.RefreshDuration = parseDuration(v, "auth.refresh_duration", 720*time.Hour)
	cfg.Storage.PresignExpiry = parseDuration(v, "storage.presign_expiry", time.Minute)
	cfg.Storage.AvatarURLExpiry = parseDuration(v, "storage.avatar_url_expiry", 15*time.Minute)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
