package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/aviator-hackers/backend-avapk/pkg/config"
	pkglog "github.com/aviator-hackers/backend-avapk/pkg/log"
	"github.com/aviator-hackers/backend-avapk/pkg/storage"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Relay     RelayConfig
	Contact   ContactConfig
	App       AppConfig
	Upload    UploadConfig
	Storage   storage.Config
	Redis     RedisConfig
	Kafka     KafkaConfig
	Log       pkglog.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type RelayConfig struct {
	// RejectDuplicateIdentity turns a second join/admin-join on one
	// connection into an error frame instead of accepting it.
	RejectDuplicateIdentity bool `mapstructure:"reject_duplicate_identity"`
}

type ContactConfig struct {
	AdminPhone     string `mapstructure:"admin_phone"`
	TelegramLink   string `mapstructure:"telegram_link"`
	WhatsAppLink   string `mapstructure:"whatsapp_link"`
	DefaultMessage string `mapstructure:"default_message"`
}

type AppConfig struct {
	LatestVersion string `mapstructure:"latest_version"`
	DownloadURL   string `mapstructure:"download_url"`
}

type UploadConfig struct {
	MaxBytes     int64  `mapstructure:"max_bytes"`
	MaxDimension int    `mapstructure:"max_dimension"`
	MaxPixels    int64  `mapstructure:"max_pixels"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

type RedisConfig struct {
	Enabled           bool
	Address           string
	Password          string
	DB                int
	Prefix            string
	AdvertiseAddress  string        `mapstructure:"advertise_address"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    string
	Topic      string
	Partitions int
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config", "")
	if err != nil {
		return nil, err
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("contact.admin_phone", "ADMIN_PHONE")
	v.BindEnv("contact.telegram_link", "TELEGRAM_LINK")
	v.BindEnv("contact.whatsapp_link", "WHATSAPP_LINK")
	v.BindEnv("app.latest_version", "LATEST_VERSION")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = parseDuration(v, "server.shutdown_timeout", 15*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 25*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Storage.URLExpiry = parseDuration(v, "storage.url_expiry", 7*24*time.Hour)
	cfg.Redis.HeartbeatInterval = parseDuration(v, "redis.heartbeat_interval", 10*time.Second)
	cfg.Redis.KeyTTL = parseDuration(v, "redis.key_ttl", 30*time.Second)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("websocket.ping_interval", "25s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	// Inline imageData frames carry base64 images.
	v.SetDefault("websocket.max_message_size", 8<<20)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("relay.reject_duplicate_identity", false)
	v.SetDefault("contact.admin_phone", "254796182560")
	v.SetDefault("contact.telegram_link", "https://t.me/your_secure_link")
	v.SetDefault("contact.whatsapp_link", "https://wa.me/your_secure_link")
	v.SetDefault("contact.default_message", "Hello, I need assistance with Aviator Predictor.")
	v.SetDefault("app.latest_version", "2.0.1")
	v.SetDefault("app.download_url", "https://aviatorpredictor-v9.netlify.app/")
	v.SetDefault("upload.max_bytes", 5<<20)
	v.SetDefault("upload.max_dimension", 2048)
	// Bounds decoded size: a few KB of PNG can declare gigapixel dimensions.
	v.SetDefault("upload.max_pixels", 40_000_000)
	v.SetDefault("upload.key_prefix", "chat-images")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./uploads")
	v.SetDefault("storage.url_expiry", "168h")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "aviato:support")
	v.SetDefault("redis.advertise_address", "localhost:3000")
	v.SetDefault("redis.heartbeat_interval", "10s")
	v.SetDefault("redis.key_ttl", "30s")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "support-chat-messages")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "aviato-server")
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
