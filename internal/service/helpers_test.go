package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Leganyst/apartment-booking/internal/booking"
	"github.com/Leganyst/apartment-booking/internal/model"
	"github.com/Leganyst/apartment-booking/internal/repository"
)

var t0 = time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

func june(d int) time.Time {
	return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// у каждого соединения к :memory: своя база
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("RSV-%08d", n.Add(1))
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	db    *gorm.DB
	clock *testClock
	svc   *BookingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	clock := &testClock{now: t0}
	svc := NewBookingServiceWithLogger(db, booking.DefaultPolicy(), sequentialIDs(), clock.Now, discardLogger())

	seedApartment(t, db, model.Apartment{
		ID:           "apt-1",
		Name:         "Loft",
		NightlyPrice: 90000,
		Capacity:     4,
		Status:       model.ApartmentStatusActive,
	})
	return &fixture{db: db, clock: clock, svc: svc}
}

func seedApartment(t *testing.T, db *gorm.DB, apt model.Apartment) {
	t.Helper()
	apt.CreatedAt = t0
	apt.UpdatedAt = t0
	if err := repository.NewGormApartmentRepository(db).Save(context.Background(), &apt); err != nil {
		t.Fatalf("seed apartment: %v", err)
	}
}

func request(checkIn, checkOut, guests int) booking.CreateBookingRequest {
	return booking.CreateBookingRequest{
		ApartmentID: "apt-1",
		CheckIn:     june(checkIn),
		CheckOut:    june(checkOut),
		Guests:      guests,
		GuestName:   "Ana Pérez",
		GuestPhone:  "+56 9 8765 4321",
		GuestEmail:  "Ana@Example.com",
	}
}

func (f *fixture) create(t *testing.T, checkIn, checkOut int) model.Booking {
	t.Helper()
	b, err := f.svc.CreateBooking(context.Background(), request(checkIn, checkOut, 2))
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func (f *fixture) get(t *testing.T, id string) model.Booking {
	t.Helper()
	b, ok, err := f.svc.GetBooking(context.Background(), id)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if !ok {
		t.Fatalf("booking %s not found", id)
	}
	return b
}

func eventTypes(t *testing.T, svc *BookingService, id string) []model.EventType {
	t.Helper()
	events, err := svc.Events(context.Background(), id)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	out := make([]model.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}
