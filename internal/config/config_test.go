package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, SlotMemory, cfg.SlotBackend)
	assert.Equal(t, 5*time.Second, cfg.StorefrontTimeout)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SLOT_BACKEND", "Redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("STOREFRONT_TIMEOUT", "750ms")
	t.Setenv("SESSION_IDLE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SlotRedis, cfg.SlotBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 750*time.Millisecond, cfg.StorefrontTimeout)
	assert.Equal(t, 30*time.Minute, cfg.IdleTTL)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("SLOT_BACKEND", "localstorage")

	_, err := Load()
	require.ErrorContains(t, err, "unknown SLOT_BACKEND")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &Config{SlotBackend: SlotFile}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLOT_DIR")
	assert.Contains(t, err.Error(), "STOREFRONT_URL")
	assert.Contains(t, err.Error(), "STOREFRONT_TIMEOUT")
	assert.Contains(t, err.Error(), "SLOT_TTL")
}

func TestLoad_RejectsZeroSlotTTL(t *testing.T) {
	t.Setenv("SLOT_TTL", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLOT_TTL")
}
