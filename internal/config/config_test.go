package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "webhook_events", cfg.TableName)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, 24*time.Hour, cfg.RedisTTL)
	assert.Nil(t, cfg.KafkaBrokers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET_TOKEN", "tok")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DB_TIMEOUT", "2s")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()

	assert.True(t, cfg.SecretConfigured())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.DBTimeout)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadIgnoresInvalidDuration(t *testing.T) {
	t.Setenv("DB_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
}

func TestAlertingConfigured(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.AlertingConfigured())

	cfg.AlertEmail = "ops@example.com"
	assert.False(t, cfg.AlertingConfigured())

	cfg.SMTPHost = "smtp.example.com"
	assert.True(t, cfg.AlertingConfigured())
}
