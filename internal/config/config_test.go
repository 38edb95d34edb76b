package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithDefaults(t *testing.T) {
	t.Setenv("PE32_DATABASE__HOST", "localhost")
	t.Setenv("PE32_DATABASE__DBNAME", "pe32")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "pe32/#", cfg.MQTT.Topic)
	assert.Equal(t, "ossohq", cfg.MQTT.Namespace)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)

	assert.False(t, cfg.Retention.Enabled)
	assert.Equal(t, "13 months", cfg.Retention.Interval)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PE32_DATABASE__HOST", "db.internal")
	t.Setenv("PE32_DATABASE__DBNAME", "pe32")
	t.Setenv("PE32_SERVER__PORT", "9090")
	t.Setenv("PE32_MQTT__NAMESPACE", "elsewhere")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "elsewhere", cfg.MQTT.Namespace)
}

func TestValidateConfig(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, validateConfig(cfg), "database host is required")

	cfg.Database.Host = "localhost"
	assert.Error(t, validateConfig(cfg), "database name is required")

	cfg.Database.DBName = "pe32"
	require.NoError(t, validateConfig(cfg))

	cfg.Redis.Enabled = true
	assert.Error(t, validateConfig(cfg), "redis host is required when enabled")

	cfg.Redis.Host = "localhost"
	assert.NoError(t, validateConfig(cfg))
}
