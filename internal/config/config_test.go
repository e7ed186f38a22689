package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 25*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, int64(8<<20), cfg.WebSocket.MaxMessageSize)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.False(t, cfg.Relay.RejectDuplicateIdentity)
	assert.Equal(t, "254796182560", cfg.Contact.AdminPhone)
	assert.Equal(t, "2.0.1", cfg.App.LatestVersion)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, int64(40_000_000), cfg.Upload.MaxPixels)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "./uploads", cfg.Storage.Local.BasePath)
	assert.Equal(t, 7*24*time.Hour, cfg.Storage.URLExpiry)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.KeyTTL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "support-chat-messages", cfg.Kafka.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "aviato-server", cfg.Log.ServiceName)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("ADMIN_PHONE", "+44 20 7946 0000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "+44 20 7946 0000", cfg.Contact.AdminPhone)
	assert.Equal(t, "debug", cfg.Log.Level)
}
