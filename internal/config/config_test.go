package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("RUN_MIGRATIONS", "")
	t.Setenv("MICROSOFT_GRAPH_URL", "")

	cfg := Load()
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, time.Hour, cfg.AccessTokenTTL)
	require.True(t, cfg.RunMigrations)
	require.Equal(t, "https://graph.microsoft.com/v1.0", cfg.Microsoft.GraphURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("NOTIFIER_WORKERS", "not-a-number")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("APP_BASE_URL", "https://farm.example.com/")
	t.Setenv("MICROSOFT_SENDER_EMAIL", "ops@example.com")

	cfg := Load()
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 4, cfg.NotifierWorkers)
	require.False(t, cfg.RunMigrations)
	require.Equal(t, "https://farm.example.com", cfg.AppBaseURL)
	require.Equal(t, "ops@example.com", cfg.Microsoft.SenderEmail)
}
