package booking

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Leganyst/apartment-booking/internal/calendar"
	"github.com/Leganyst/apartment-booking/internal/model"
)

var ErrInvalidTransition = errors.New("booking: invalid status transition")

// Transition: смена статуса брони.
type Transition struct {
	From  model.BookingStatus
	To    model.BookingStatus
	Event model.EventType
}

func (t Transition) String() string {
	return fmt.Sprintf("%s -> %s", t.From, t.To)
}

// SweepOne применяет к b переходы по времени:
//
//	PENDING_PAYMENT, now > ExpiresAt                               -> EXPIRED
//	CONFIRMED|CHECKED_IN, остаток 0, now >= начала дня выезда      -> FINALIZED
//
// Остальные брони не трогаются, ok == false.
func SweepOne(b *model.Booking, now time.Time, loc *time.Location) (Transition, bool) {
	switch b.Status {
	case model.BookingStatusPendingPayment:
		if !now.After(b.ExpiresAt) {
			return Transition{}, false
		}
		t := Transition{From: b.Status, To: model.BookingStatusExpired, Event: model.EventTypeBookingExpired}
		b.Status = model.BookingStatusExpired
		return t, true

	case model.BookingStatusConfirmed, model.BookingStatusCheckedIn:
		if b.RemainingBalance != 0 || now.Before(calendar.StartOfDay(b.CheckOut, loc)) {
			return Transition{}, false
		}
		t := Transition{From: b.Status, To: model.BookingStatusFinalized, Event: model.EventTypeBookingFinalized}
		finalize(b, now)
		return t, true
	}
	return Transition{}, false
}

// Sweep возвращает копию bookings с применённым SweepOne.
// Повторный вызов на результате ничего не меняет.
func Sweep(bookings []model.Booking, now time.Time, loc *time.Location) []model.Booking {
	out := make([]model.Booking, len(bookings))
	copy(out, bookings)
	for i := range out {
		SweepOne(&out[i], now, loc)
	}
	return out
}

// ApplyDeposit подтверждает бронь после оплаты депозита.
func ApplyDeposit(b *model.Booking, method string) (Transition, error) {
	if b.Status != model.BookingStatusPendingPayment {
		return Transition{}, fmt.Errorf("%w: deposit on %s booking", ErrInvalidTransition, b.Status)
	}
	t := Transition{From: b.Status, To: model.BookingStatusConfirmed, Event: model.EventTypeBookingDepositPaid}
	b.Status = model.BookingStatusConfirmed
	b.DepositMethod = method
	return t, nil
}

// ApplyCheckIn фиксирует заезд. В CHECKED_IN переходит только CONFIRMED,
// остальные статусы сохраняются.
func ApplyCheckIn(b *model.Booking, operator string, now time.Time) Transition {
	at := now
	b.CheckedInAt = &at
	b.CheckInOperator = operator
	t := Transition{From: b.Status, To: b.Status, Event: model.EventTypeBookingCheckedIn}
	if b.Status == model.BookingStatusConfirmed {
		b.Status = model.BookingStatusCheckedIn
		t.To = b.Status
	}
	return t
}

// ApplyExtra добавляет доп. услугу; остаток по проживанию не меняется.
// Если итог к оплате перестаёт помещаться в int64, бронь не трогается.
func ApplyExtra(b *model.Booking, extra model.Extra) error {
	next := *b
	next.Extras = append(slices.Clone(b.Extras), extra)
	if _, err := FinalBalance(next); err != nil {
		return err
	}
	b.Extras = next.Extras
	return nil
}

// ApplyRemainingPayment гасит остаток по проживанию; с начала дня выезда
// бронь сразу закрывается.
func ApplyRemainingPayment(b *model.Booking, operator, method string, now time.Time, loc *time.Location) Transition {
	b.RemainingBalance = 0
	b.BalanceMethod = method
	t := Transition{From: b.Status, To: b.Status, Event: model.EventTypeBookingBalanceSettled}
	if !now.Before(calendar.StartOfDay(b.CheckOut, loc)) {
		finalize(b, now)
		b.CheckOutOperator = operator
		t.To = b.Status
	}
	return t
}

// ApplyCheckout закрывает бронь независимо от долга.
func ApplyCheckout(b *model.Booking, operator string, now time.Time) Transition {
	t := Transition{From: b.Status, To: model.BookingStatusFinalized, Event: model.EventTypeBookingCheckedOut}
	finalize(b, now)
	b.CheckOutOperator = operator
	return t
}

// ApplyStatus выставляет статус без проверки перехода.
func ApplyStatus(b *model.Booking, status model.BookingStatus) Transition {
	t := Transition{From: b.Status, To: status, Event: model.EventTypeBookingStatusChanged}
	b.Status = status
	return t
}

func finalize(b *model.Booking, now time.Time) {
	at := now
	b.Status = model.BookingStatusFinalized
	b.CheckedOutAt = &at
}
