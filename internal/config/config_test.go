package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "KAFKA_BROKERS", "MAKER_FEE_RATE", "CACHE_TTL", "WALLET_AVAILABLE"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.KafkaBrokers != nil {
		t.Errorf("brokers = %v, want none", cfg.KafkaBrokers)
	}
	if !cfg.MakerFeeRate.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("maker fee rate = %s", cfg.MakerFeeRate)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("cache ttl = %s", cfg.CacheTTL)
	}
	if !cfg.WalletAvailable {
		t.Error("wallet should default to available")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MAKER_FEE_RATE", "0.002")
	t.Setenv("CACHE_TTL", "5")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("DISABLE_API", "true")
	t.Setenv("BANNED_CURRENCIES", "XMR")
	t.Setenv("MAX_TRADE_AMOUNT", "250000000")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.KafkaBrokers)
	}
	if !cfg.MakerFeeRate.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("maker fee rate = %s", cfg.MakerFeeRate)
	}
	if cfg.CacheTTL != 5*time.Second {
		t.Errorf("cache ttl = %s, want bare integers read as seconds", cfg.CacheTTL)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Errorf("token ttl = %s", cfg.TokenTTL)
	}
	if !cfg.DisableAPI {
		t.Error("DISABLE_API not applied")
	}
	if len(cfg.BannedCurrencies) != 1 || cfg.BannedCurrencies[0] != "XMR" {
		t.Errorf("banned currencies = %v", cfg.BannedCurrencies)
	}
	if cfg.MaxTradeAmount != 250_000_000 {
		t.Errorf("max trade amount = %d", cfg.MaxTradeAmount)
	}
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAKER_FEE_RATE", "lots")
	t.Setenv("WALLET_AVAILABLE", "maybe")
	cfg := Load()
	if !cfg.MakerFeeRate.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("malformed rate should fall back to default, got %s", cfg.MakerFeeRate)
	}
	if !cfg.WalletAvailable {
		t.Error("malformed bool should fall back to default")
	}
}
