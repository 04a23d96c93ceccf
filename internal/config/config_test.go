package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("STORE_OP_TIMEOUT_MS", "")
	t.Setenv("PROBE_INTERVAL", "")
	t.Setenv("RETRY_BASE_DELAY_MS", "")
	t.Setenv("RETRY_MAX_ATTEMPTS", "")
	t.Setenv("DELIVERY_FEE_CENTAVOS", "")
	c := Load()
	if c.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default")
	}
	if c.StoreBackend != "mysql" {
		t.Fatalf("StoreBackend default")
	}
	if c.StoreOpTimeout != 5*time.Second {
		t.Fatalf("StoreOpTimeout default")
	}
	if c.ProbeInterval != 30*time.Second {
		t.Fatalf("ProbeInterval default")
	}
	if c.RetryBaseDelay != 500*time.Millisecond || c.RetryMaxAttempts != 5 {
		t.Fatalf("retry defaults")
	}
	if c.DeliveryFeeCentavos != 500 {
		t.Fatalf("DeliveryFeeCentavos default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("FILE_STORE_DIR", "/tmp/acai")
	t.Setenv("PROBE_INTERVAL", "5")
	t.Setenv("RETRY_BASE_DELAY_MS", "100")
	t.Setenv("RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("ADMIN_RATE_LIMIT", "2.5")
	t.Setenv("DELIVERY_FEE_CENTAVOS", "700")
	c := Load()
	if c.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr env")
	}
	if c.StoreBackend != "file" || c.FileStoreDir != "/tmp/acai" {
		t.Fatalf("store backend env")
	}
	if c.ProbeInterval != 5*time.Second {
		t.Fatalf("ProbeInterval env")
	}
	if c.RetryBaseDelay != 100*time.Millisecond || c.RetryMaxAttempts != 3 {
		t.Fatalf("retry env")
	}
	if c.AdminRateLimit != 2.5 {
		t.Fatalf("AdminRateLimit env")
	}
	if c.DeliveryFeeCentavos != 700 {
		t.Fatalf("DeliveryFeeCentavos env")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RETRY_MAX_ATTEMPTS", "many")
	t.Setenv("ADMIN_RATE_LIMIT", "fast")
	c := Load()
	if c.RetryMaxAttempts != 5 {
		t.Fatalf("malformed int should fall back to default")
	}
	if c.AdminRateLimit != 5 {
		t.Fatalf("malformed float should fall back to default")
	}
}
