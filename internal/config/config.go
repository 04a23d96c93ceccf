// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration knobs for the HTTP server, the store backend
// and the connection supervisor.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// StoreBackend selects the availability store: mysql, redis, file or
	// memory.
	StoreBackend string
	MySQLDSN     string
	RedisAddr    string
	FileStoreDir string

	StoreOpTimeout   time.Duration
	ProbeInterval    time.Duration
	RetryBaseDelay   time.Duration
	RetryMaxAttempts int

	// AdminTokenDigest is the hex SHA-256 of the admin bearer token. Empty
	// disables the admin endpoints.
	AdminTokenDigest string
	AdminRateLimit   float64
	AdminRateBurst   int

	// DeliveryFeeCentavos is added to every order total.
	DeliveryFeeCentavos int64
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatenv(key string, def float64) float64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from the environment with defaults, reading a
// local .env file first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 10),

		StoreBackend: getenv("STORE_BACKEND", "mysql"),
		MySQLDSN:     getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/acaidelivery?parseTime=true"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		FileStoreDir: getenv("FILE_STORE_DIR", "data"),

		StoreOpTimeout:   durenvms("STORE_OP_TIMEOUT_MS", 5000),
		ProbeInterval:    durenvs("PROBE_INTERVAL", 30),
		RetryBaseDelay:   durenvms("RETRY_BASE_DELAY_MS", 500),
		RetryMaxAttempts: atoienv("RETRY_MAX_ATTEMPTS", 5),

		AdminTokenDigest: getenv("ADMIN_TOKEN_SHA256", ""),
		AdminRateLimit:   floatenv("ADMIN_RATE_LIMIT", 5),
		AdminRateBurst:   atoienv("ADMIN_RATE_BURST", 10),

		DeliveryFeeCentavos: int64(atoienv("DELIVERY_FEE_CENTAVOS", 500)),
	}
}
