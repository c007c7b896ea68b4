// Package config loads runtime configuration from the environment. A .env
// file in the working directory is read first when present.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds runtime configuration.
type Config struct {
	Port string

	// Persistence
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration

	// Offer events
	KafkaBrokers []string
	KafkaTopic   string

	// Identity and auth
	NodeFingerprint string
	APIPasswordHash string
	JWTSecret       string
	TokenTTL        time.Duration

	// Wallet
	WalletAvailable    bool
	WalletPasswordHash string

	// Offer economics
	MakerFeeRate         decimal.Decimal // fraction of amount
	MinSecurityDeposit   decimal.Decimal // fraction of amount
	MaxSecurityDeposit   decimal.Decimal // fraction of amount
	MaxTradeAmount       int64           // satoshi
	PriceMaxAge          time.Duration
	DisableAPI           bool
	BannedOfferIDs       []string
	BannedCurrencies     []string
	BannedPaymentMethods []string
}

// Load reads .env if present and populates Config from the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", "err", err)
	}

	return Config{
		Port:                 getenv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		CacheTTL:             parseDurationEnv("CACHE_TTL", 30*time.Second),
		KafkaBrokers:         parseListEnv("KAFKA_BROKERS"),
		KafkaTopic:           getenv("KAFKA_TOPIC", "offer-events"),
		NodeFingerprint:      getenv("NODE_FINGERPRINT", "local-node"),
		APIPasswordHash:      os.Getenv("API_PASSWORD_HASH"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		TokenTTL:             parseDurationEnv("TOKEN_TTL", 24*time.Hour),
		WalletAvailable:      parseBoolEnv("WALLET_AVAILABLE", true),
		WalletPasswordHash:   os.Getenv("WALLET_PASSWORD_HASH"),
		MakerFeeRate:         parseDecimalEnv("MAKER_FEE_RATE", decimal.RequireFromString("0.001")),
		MinSecurityDeposit:   parseDecimalEnv("MIN_SECURITY_DEPOSIT", decimal.RequireFromString("0.15")),
		MaxSecurityDeposit:   parseDecimalEnv("MAX_SECURITY_DEPOSIT", decimal.RequireFromString("0.5")),
		MaxTradeAmount:       parseInt64Env("MAX_TRADE_AMOUNT", 100_000_000),
		PriceMaxAge:          parseDurationEnv("PRICE_MAX_AGE", 0),
		DisableAPI:           parseBoolEnv("DISABLE_API", false),
		BannedOfferIDs:       parseListEnv("BANNED_OFFER_IDS"),
		BannedCurrencies:     parseListEnv("BANNED_CURRENCIES"),
		BannedPaymentMethods: parseListEnv("BANNED_PAYMENT_METHODS"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBoolEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func parseInt64Env(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func parseDecimalEnv(key string, def decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return def
}

// parseListEnv splits a comma-separated value, dropping blanks.
func parseListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
