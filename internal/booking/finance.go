package booking

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Leganyst/apartment-booking/internal/model"
)

// Верхние границы входных денежных величин.
const (
	MaxAmount   int64 = 1_000_000_000_000
	MaxQuantity int64 = 10_000
)

var ErrAmountOverflow = errors.New("booking: amount overflows int64")

// TotalStay фиксируется при создании брони; смена цены апартамента её не трогает.
func TotalStay(nights int, nightlyRate int64) (int64, error) {
	total, err := mulAmount(int64(nights), nightlyRate)
	if err != nil {
		return 0, fmt.Errorf("total stay: %w", err)
	}
	return total, nil
}

// RemainingAfterDeposit не уходит ниже нуля: депозит больше короткого
// проживания не превращается в переплату.
func RemainingAfterDeposit(total, deposit int64) int64 {
	return max(total-deposit, 0)
}

// ExtrasTotal считается на лету и нигде не хранится.
func ExtrasTotal(extras []model.Extra) (int64, error) {
	var sum int64
	for _, e := range extras {
		line, err := mulAmount(e.UnitPrice, e.Quantity)
		if err != nil {
			return 0, fmt.Errorf("extra %q: %w", e.Description, err)
		}
		if sum, err = addAmount(sum, line); err != nil {
			return 0, fmt.Errorf("extras total: %w", err)
		}
	}
	return sum, nil
}

// FinalBalance: сколько гость должен на выезде, остаток по проживанию плюс все extras.
func FinalBalance(b model.Booking) (int64, error) {
	extras, err := ExtrasTotal(b.Extras)
	if err != nil {
		return 0, err
	}
	return addAmount(b.RemainingBalance, extras)
}

// Totals: суммы, которые видят сотрудники и гость.
type Totals struct {
	TotalStay        int64
	Deposit          int64
	RemainingBalance int64
	ExtrasTotal      int64
	FinalBalance     int64
}

func Summary(b model.Booking) (Totals, error) {
	extras, err := ExtrasTotal(b.Extras)
	if err != nil {
		return Totals{}, err
	}
	final, err := addAmount(b.RemainingBalance, extras)
	if err != nil {
		return Totals{}, fmt.Errorf("final balance: %w", err)
	}
	return Totals{
		TotalStay:        b.TotalStay,
		Deposit:          b.Deposit,
		RemainingBalance: b.RemainingBalance,
		ExtrasTotal:      extras,
		FinalBalance:     final,
	}, nil
}

// FormatAmount печатает целую сумму с разделителями разрядов локали и
// суффиксом валюты, например "270.000 CLP".
func FormatAmount(amount int64, lang language.Tag, suffix string) string {
	s := message.NewPrinter(lang).Sprintf("%d", amount)
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		s += " " + suffix
	}
	return s
}

func (p Policy) Format(amount int64) string {
	return FormatAmount(amount, p.CurrencyLocale, p.CurrencySuffix)
}

// Суммы и количества неотрицательны, поэтому хватает проверок сверху.
func mulAmount(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("%w: negative operand", ErrAmountOverflow)
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, ErrAmountOverflow
	}
	return a * b, nil
}

func addAmount(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}
