package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("TAX_RATE", "")
	t.Setenv("PENDING_ORDER_TTL", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "0.18", cfg.TaxRate)
	assert.Equal(t, "500.00", cfg.ShippingFlat)
	assert.Equal(t, 48*time.Hour, cfg.PendingOrderTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_PORT", "eighty")
	t.Setenv("X_TTL", "soon")
	t.Setenv("X_ZERO", "0")

	assert.Equal(t, 10, EnvIntDefault("X_PORT", 10))
	assert.Equal(t, time.Minute, EnvDurationDefault("X_TTL", time.Minute))
	assert.Equal(t, time.Duration(0), EnvDurationDefault("X_ZERO", time.Minute))
}

func TestMissing(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"DATABASE_URL", "REDIS_ADDR", "JWT_SECRET", "JWT_REFRESH_SECRET"}, Config{}.Missing())

	full := Config{
		DatabaseURL:      "postgres://localhost/evocart",
		RedisAddr:        "localhost:6379",
		JWTAccessSecret:  []byte("a"),
		JWTRefreshSecret: []byte("r"),
	}
	assert.Empty(t, full.Missing())

	full.RedisAddr = ""
	assert.Equal(t, []string{"REDIS_ADDR"}, full.Missing())
}
