package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the exchange simulation.
// Prices and amounts are integers in the pair's smallest units.
type Config struct {
	LogLevel       string
	LogFormat      string // "json" or "pretty"
	Accounts       int
	Traders        int
	InitialQuote   int64
	InitialBase    int64
	PriceFloor     int64
	PriceCeil      int64
	MaxOrderQty    int64
	OrderInterval  time.Duration
	ReportInterval time.Duration
	ReportDepth    int
}

// Load reads configuration from environment variables, applies
// defaults, and validates values. It returns an error for any invalid
// value.
func Load() (*Config, error) {
	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	logFormat := getStr("LOG_FORMAT", "json")
	if logFormat != "json" && logFormat != "pretty" {
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q, must be json or pretty", logFormat)
	}

	accounts, err := getInt("ACCOUNTS", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid ACCOUNTS: %w", err)
	}
	if accounts <= 0 {
		return nil, fmt.Errorf("invalid ACCOUNTS: must be positive, got %d", accounts)
	}

	traders, err := getInt("TRADERS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid TRADERS: %w", err)
	}
	if traders <= 0 {
		return nil, fmt.Errorf("invalid TRADERS: must be positive, got %d", traders)
	}

	initialQuote, err := getInt64("INITIAL_QUOTE", 1_000_000_000)
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_QUOTE: %w", err)
	}
	if initialQuote < 0 {
		return nil, fmt.Errorf("invalid INITIAL_QUOTE: must be non-negative, got %d", initialQuote)
	}

	initialBase, err := getInt64("INITIAL_BASE", 10_000)
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_BASE: %w", err)
	}
	if initialBase < 0 {
		return nil, fmt.Errorf("invalid INITIAL_BASE: must be non-negative, got %d", initialBase)
	}

	priceFloor, err := getInt64("PRICE_FLOOR", 99_900)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_FLOOR: %w", err)
	}
	if priceFloor <= 0 {
		return nil, fmt.Errorf("invalid PRICE_FLOOR: must be positive, got %d", priceFloor)
	}

	priceCeil, err := getInt64("PRICE_CEIL", 100_100)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_CEIL: %w", err)
	}
	if priceCeil < priceFloor {
		return nil, fmt.Errorf("invalid PRICE_CEIL: must be >= PRICE_FLOOR (%d), got %d", priceFloor, priceCeil)
	}

	maxOrderQty, err := getInt64("MAX_ORDER_QTY", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_ORDER_QTY: %w", err)
	}
	if maxOrderQty <= 0 {
		return nil, fmt.Errorf("invalid MAX_ORDER_QTY: must be positive, got %d", maxOrderQty)
	}

	orderInterval, err := getDuration("ORDER_INTERVAL", 1*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_INTERVAL: %w", err)
	}

	reportInterval, err := getDuration("REPORT_INTERVAL", 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_INTERVAL: %w", err)
	}

	reportDepth, err := getInt("REPORT_DEPTH", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_DEPTH: %w", err)
	}
	if reportDepth <= 0 {
		return nil, fmt.Errorf("invalid REPORT_DEPTH: must be positive, got %d", reportDepth)
	}

	return &Config{
		LogLevel:       logLevel,
		LogFormat:      logFormat,
		Accounts:       accounts,
		Traders:        traders,
		InitialQuote:   initialQuote,
		InitialBase:    initialBase,
		PriceFloor:     priceFloor,
		PriceCeil:      priceCeil,
		MaxOrderQty:    maxOrderQty,
		OrderInterval:  orderInterval,
		ReportInterval: reportInterval,
		ReportDepth:    reportDepth,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
