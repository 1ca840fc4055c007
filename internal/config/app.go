package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/Leganyst/apartment-booking/internal/booking"
)

// AppConfig хранит настройки сервиса бронирования.
type AppConfig struct {
	GRPCAddr       string
	Deposit        int64
	HoldWindow     time.Duration
	ExtraGuestFee  int64
	Location       *time.Location
	CurrencySuffix string
	CurrencyLocale language.Tag
	LogLevel       slog.Level
	// Логин администратора, создаваемого на старте; пусто: не создавать.
	BootstrapAdmin string
}

// LoadEnvFile подгружает переменные из .env, если файл есть.
// Уже выставленные переменные окружения не перетираются.
func LoadEnvFile(paths ...string) error {
	err := godotenv.Load(paths...)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file: %w", err)
}

func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		GRPCAddr:       getEnv("GRPC_ADDR", ":50051"),
		CurrencySuffix: getEnv("CURRENCY_SUFFIX", "CLP"),
		BootstrapAdmin: strings.TrimSpace(getEnv("BOOTSTRAP_ADMIN", "admin")),
	}

	var errs []error

	deposit, err := getEnvInt64("BOOKING_DEPOSIT", booking.DefaultDeposit)
	errs = append(errs, err)
	cfg.Deposit = deposit

	fee, err := getEnvInt64("BOOKING_EXTRA_GUEST_FEE", booking.DefaultExtraGuestFee)
	errs = append(errs, err)
	cfg.ExtraGuestFee = fee

	hold, err := getEnvDuration("BOOKING_HOLD_WINDOW", booking.DefaultHoldWindow)
	errs = append(errs, err)
	cfg.HoldWindow = hold

	loc, err := time.LoadLocation(getEnv("PROPERTY_TIMEZONE", "UTC"))
	if err != nil {
		errs = append(errs, fmt.Errorf("PROPERTY_TIMEZONE: %w", err))
	}
	cfg.Location = loc

	tag, err := language.Parse(getEnv("CURRENCY_LOCALE", "es"))
	if err != nil {
		errs = append(errs, fmt.Errorf("CURRENCY_LOCALE: %w", err))
	}
	cfg.CurrencyLocale = tag

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(getEnv("LOG_LEVEL", "INFO")))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.Deposit < 0 || cfg.ExtraGuestFee < 0 {
		return nil, fmt.Errorf("invalid booking config: amounts must not be negative")
	}
	if cfg.HoldWindow <= 0 {
		return nil, fmt.Errorf("invalid booking config: hold window must be positive")
	}

	return cfg, nil
}

// Policy переводит настройки в правила движка бронирований.
func (c *AppConfig) Policy() booking.Policy {
	return booking.Policy{
		Deposit:        c.Deposit,
		HoldWindow:     c.HoldWindow,
		ExtraGuestFee:  c.ExtraGuestFee,
		Location:       c.Location,
		CurrencySuffix: c.CurrencySuffix,
		CurrencyLocale: c.CurrencyLocale,
	}
}
