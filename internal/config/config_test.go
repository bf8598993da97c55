package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "KAFKA_BROKERS", "PG_MAX_CONNS", "LOW_STOCK_THRESHOLD", "CHECKOUT_RATE_PER_SEC"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int32(8), cfg.PGMaxConns)
	assert.Equal(t, 3, cfg.LowStockThreshold)
	assert.InDelta(t, 2.0, cfg.CheckoutRate, 1e-9)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("PG_MAX_CONNS", "16")
	t.Setenv("LOW_STOCK_THRESHOLD", "not-a-number")
	t.Setenv("CHECKOUT_RATE_PER_SEC", "0.5")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int32(16), cfg.PGMaxConns)
	assert.Equal(t, 3, cfg.LowStockThreshold, "bad values fall back to the default")
	assert.InDelta(t, 0.5, cfg.CheckoutRate, 1e-9)
}
