package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "REDIS_URL", "PUBNUB_PUBLISH_KEY", "PUBNUB_SUBSCRIBE_KEY", "SUBSCRIBER_BUFFER", "STREAM_WRITE_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./public", cfg.PublicDir)
	assert.Equal(t, "kasir.html", cfg.CashierPage)
	assert.Equal(t, "/pay.html", cfg.PayPage)
	assert.Equal(t, 16, cfg.SubscriberBuffer)
	assert.Equal(t, 5*time.Second, cfg.StreamWriteTimeout)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.PubNubEnabled())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("SUBSCRIBER_BUFFER", "4")
	t.Setenv("STREAM_WRITE_TIMEOUT", "750ms")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PUBNUB_PUBLISH_KEY", "pub-c-test")
	t.Setenv("PUBNUB_SUBSCRIBE_KEY", "sub-c-test")
	t.Setenv("ENABLE_METRICS", "false")

	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 4, cfg.SubscriberBuffer)
	assert.Equal(t, 750*time.Millisecond, cfg.StreamWriteTimeout)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.PubNubEnabled())
	assert.False(t, cfg.EnableMetrics)
}

func TestGetEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_DURATION", "soon")

	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))
	assert.True(t, getEnvAsBool("TEST_BOOL", true))
	assert.Equal(t, 2*time.Second, getEnvAsDuration("TEST_DURATION", "2s"))
}
