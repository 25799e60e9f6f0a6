package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string
	PublicDir   string
	CashierPage string
	PayPage     string

	// Event stream configuration
	SubscriberBuffer   int
	StreamWriteTimeout time.Duration
	HeartbeatInterval  time.Duration

	// Redis relay configuration
	RedisURL     string
	RedisChannel string

	// PubNub relay configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string
	PubNubChannel      string

	// Relay configuration
	RelayTimeout        time.Duration
	RelayMaxFailures    int
	RelayCircuitTimeout time.Duration

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		PublicDir:   getEnv("PUBLIC_DIR", "./public"),
		CashierPage: getEnv("CASHIER_PAGE", "kasir.html"),
		PayPage:     getEnv("PAY_PAGE", "/pay.html"),

		// Event stream
		SubscriberBuffer:   getEnvAsInt("SUBSCRIBER_BUFFER", 16),
		StreamWriteTimeout: getEnvAsDuration("STREAM_WRITE_TIMEOUT", "5s"),
		HeartbeatInterval:  getEnvAsDuration("HEARTBEAT_INTERVAL", "25s"),

		// Redis
		RedisURL:     getEnv("REDIS_URL", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "pos:payments"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "pos-relay"),
		PubNubChannel:      getEnv("PUBNUB_CHANNEL", "cashier-payments"),

		// Relays
		RelayTimeout:        getEnvAsDuration("RELAY_TIMEOUT", "3s"),
		RelayMaxFailures:    getEnvAsInt("RELAY_MAX_FAILURES", 5),
		RelayCircuitTimeout: getEnvAsDuration("RELAY_CIRCUIT_TIMEOUT", "30s"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

// RedisEnabled reports whether paid events are mirrored to Redis pub/sub.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// PubNubEnabled reports whether paid events are mirrored to PubNub.
func (c *Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
