package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	SlotMemory = "memory"
	SlotFile   = "file"
	SlotRedis  = "redis"
	SlotMongo  = "mongo"
)

type Config struct {
	HTTPPort        string
	GRPCPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	StorefrontURL     string
	StorefrontTimeout time.Duration

	SlotBackend   string
	SlotDir       string
	SlotTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string

	KafkaBrokers  []string
	NoticeTopic   string
	CheckoutTopic string
	ConsumerGroup string

	IdleTTL         time.Duration
	CleanupInterval time.Duration

	LogLevel string
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		GRPCPort:        getEnv("GRPC_PORT", "50053"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		StorefrontURL:     getEnv("STOREFRONT_URL", "http://localhost:3333"),
		StorefrontTimeout: getDuration("STOREFRONT_TIMEOUT", 5*time.Second),

		SlotBackend:   strings.ToLower(getEnv("SLOT_BACKEND", SlotMemory)),
		SlotDir:       getEnv("SLOT_DIR", "./data/carts"),
		SlotTTL:       getDuration("SLOT_TTL", 24*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "cartdb"),

		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		NoticeTopic:   getEnv("NOTICE_TOPIC", "cart-notices"),
		CheckoutTopic: getEnv("CHECKOUT_TOPIC", "checkout-outbox"),
		ConsumerGroup: getEnv("CONSUMER_GROUP", "cart-session-consumer"),

		IdleTTL:         getDuration("SESSION_IDLE_TTL", 30*time.Minute),
		CleanupInterval: getDuration("SESSION_CLEANUP_INTERVAL", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.SlotBackend {
	case SlotMemory, SlotFile, SlotRedis, SlotMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown SLOT_BACKEND %q", c.SlotBackend))
	}
	if c.SlotBackend == SlotFile && c.SlotDir == "" {
		errs = append(errs, errors.New("SLOT_DIR is required for the file backend"))
	}
	if c.StorefrontURL == "" {
		errs = append(errs, errors.New("STOREFRONT_URL is required"))
	}
	if c.StorefrontTimeout <= 0 {
		errs = append(errs, errors.New("STOREFRONT_TIMEOUT must be positive"))
	}
	if c.SlotTTL <= 0 {
		errs = append(errs, errors.New("SLOT_TTL must be positive"))
	}
	if c.IdleTTL <= 0 || c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("session idle ttl and cleanup interval must be positive"))
	}

	return errors.Join(errs...)
}

// KafkaEnabled reports whether notices and checkout events go through kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
