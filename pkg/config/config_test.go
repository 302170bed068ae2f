package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
clickhouse:
  host: ch
greeks:
  base_url: http://greeks
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "clickhouse", c.Positions.Backend)
	assert.Equal(t, 15*time.Second, c.Positions.Timeout)
	assert.Equal(t, 10*time.Second, c.Price.Timeout)
	assert.Equal(t, "alerts", c.Kafka.AlertsTopic)
	assert.Equal(t, 10, c.Analytics.IVHistoryDays)
}

func TestValidatePostgresNeedsDSN(t *testing.T) {
	_, err := Parse([]byte(minimal + "positions:\n  backend: postgres\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.dsn")
}

func TestValidateUnknownBackend(t *testing.T) {
	_, err := Parse([]byte(minimal + "positions:\n  backend: mongo\n"))
	require.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	env := map[string]string{
		"GREEKS_API_TOKEN":  "tok",
		"POSITIONS_BACKEND": "postgres",
		"POSITIONS_DSN":     "postgres://u@h/db",
		"KAFKA_BROKERS":     "a:9092,b:9092",
		"REDIS_ADDR":        "redis:6379",
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "tok", c.Greeks.Token)
	assert.Equal(t, "postgres", c.Positions.Backend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.NoError(t, c.Validate())
}
