package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if !cfg.App.IsProd() {
		t.Fatalf("expected IsProd to be true")
	}

	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}

	if got := cfg.Content.AgencyCacheTTL; got != 168*time.Hour {
		t.Fatalf("expected agency cache TTL of one week, got %v", got)
	}
	if cfg.Content.AgencyPageSize != 100 {
		t.Fatalf("unexpected agency page size %d", cfg.Content.AgencyPageSize)
	}

	if cfg.Culqi.Currency != "PEN" {
		t.Fatalf("unexpected currency %q", cfg.Culqi.Currency)
	}

	want := decimal.RequireFromString("20.00")
	if !cfg.Checkout.HomeDeliveryFeeAmount().Equal(want) {
		t.Fatalf("unexpected home delivery fee %s", cfg.Checkout.HomeDeliveryFeeAmount())
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv("TOPSEVEN_APP_ENV"); err != nil {
		t.Fatalf("failed to unset app env: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_InvalidFee(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("TOPSEVEN_HOME_DELIVERY_FEE", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid fee to return an error")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv("TOPSEVEN_APP_ENV", "production")
	t.Setenv("TOPSEVEN_APP_PORT", "8081")
	t.Setenv("TOPSEVEN_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("TOPSEVEN_CONTENT_BASE_URL", "https://backend.example.com")
	t.Setenv("TOPSEVEN_CULQI_PUBLIC_KEY", "pk_test_123")
	t.Setenv("TOPSEVEN_CULQI_ORDER_ID", "ord_live_0CjjdWhFpEAZlxlz")
}
