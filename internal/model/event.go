package model

import "time"

// Тип события аудита.
type EventType string

const (
	EventTypeBookingCreated        EventType = "booking_created"
	EventTypeBookingStatusChanged  EventType = "booking_status_changed"
	EventTypeBookingExpired        EventType = "booking_expired"
	EventTypeBookingFinalized      EventType = "booking_finalized"
	EventTypeBookingCheckedIn      EventType = "booking_checked_in"
	EventTypeBookingExtraAdded     EventType = "booking_extra_added"
	EventTypeBookingDepositPaid    EventType = "booking_deposit_paid"
	EventTypeBookingBalanceSettled EventType = "booking_balance_settled"
	EventTypeBookingCheckedOut     EventType = "booking_checked_out"
)

// events: журнал изменений броней, только на добавление.
type Event struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	EventType EventType `gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
	BookingID string    `gorm:"type:varchar(32);not null;index"`
	Operator  string    `gorm:"type:varchar(64)"`
	Details   string    `gorm:"type:text"`
}
