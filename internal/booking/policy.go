// Package booking содержит чистые правила движка бронирования: занятость дат,
// переходы статусов, расчёт сумм и проверку заявок. С БД пакет не работает,
// записи приходят из сервисного слоя.
package booking

import (
	"time"

	"golang.org/x/text/language"
)

const (
	DefaultDeposit       int64 = 25000
	DefaultHoldWindow          = 2 * time.Hour
	DefaultExtraGuestFee int64 = 15000
	DefaultCurrency            = "CLP"

	ExtraGuestDescription = "Extra guest"
)

// Policy: общие для объекта правила, применяемые к каждой брони.
type Policy struct {
	Deposit        int64
	HoldWindow     time.Duration
	ExtraGuestFee  int64
	Location       *time.Location
	CurrencySuffix string
	CurrencyLocale language.Tag
}

func DefaultPolicy() Policy {
	return Policy{
		Deposit:        DefaultDeposit,
		HoldWindow:     DefaultHoldWindow,
		ExtraGuestFee:  DefaultExtraGuestFee,
		Location:       time.UTC,
		CurrencySuffix: DefaultCurrency,
		CurrencyLocale: language.Spanish,
	}
}

// Loc: часовой пояс объекта, по умолчанию UTC.
func (p Policy) Loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
