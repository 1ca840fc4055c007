package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusCheckedIn      BookingStatus = "CHECKED_IN"
	BookingStatusFinalized      BookingStatus = "FINALIZED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
	BookingStatusExpired        BookingStatus = "EXPIRED"
)

var bookingStatuses = map[BookingStatus]struct{}{
	BookingStatusPendingPayment: {},
	BookingStatusConfirmed:      {},
	BookingStatusCheckedIn:      {},
	BookingStatusFinalized:      {},
	BookingStatusCancelled:      {},
	BookingStatusExpired:        {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingStatuses[s]
	return ok
}

// HoldsDates сообщает, занимает ли бронь даты апартамента.
func (s BookingStatus) HoldsDates() bool {
	return s != BookingStatusCancelled && s != BookingStatusExpired
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// Extra: дополнительная услуга, добавленная во время проживания.
type Extra struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Quantity    int64     `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// bookings
type Booking struct {
	ID               string `gorm:"type:varchar(32);primaryKey"`
	PaymentReference string `gorm:"type:varchar(16);not null"`
	ApartmentID      string `gorm:"type:varchar(64);not null;index:idx_bookings_apartment_status,priority:1"`

	CheckIn  time.Time `gorm:"not null;index"`
	CheckOut time.Time `gorm:"not null"`
	Nights   int       `gorm:"not null"`
	Guests   int       `gorm:"not null"`

	GuestName  string `gorm:"type:varchar(255);not null"`
	GuestPhone string `gorm:"type:varchar(32);not null"`
	GuestEmail string `gorm:"type:varchar(255);not null"`

	// Суммы в целых единицах валюты, без копеек.
	TotalStay        int64 `gorm:"not null"`
	Deposit          int64 `gorm:"not null"`
	RemainingBalance int64 `gorm:"not null"`

	Status BookingStatus `gorm:"type:varchar(32);not null;index:idx_bookings_apartment_status,priority:2"`

	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
	ExpiresAt        time.Time `gorm:"not null"`
	CheckedInAt      *time.Time
	CheckedOutAt     *time.Time
	CheckInOperator  string `gorm:"type:varchar(64)"`
	CheckOutOperator string `gorm:"type:varchar(64)"`

	Extras datatypes.JSONSlice[Extra]

	DepositMethod string `gorm:"type:varchar(32)"`
	BalanceMethod string `gorm:"type:varchar(32)"`

	Version       int64 `gorm:"not null;default:1"`
	SchemaVersion int   `gorm:"not null;default:1"`
}
