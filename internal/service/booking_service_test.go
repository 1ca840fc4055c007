package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Leganyst/apartment-booking/internal/booking"
	"github.com/Leganyst/apartment-booking/internal/model"
	"github.com/Leganyst/apartment-booking/internal/repository"
)

func TestBookingService_CreateBooking_ComputesTotals(t *testing.T) {
	f := newFixture(t)

	b := f.create(t, 10, 13)

	if b.Status != model.BookingStatusPendingPayment {
		t.Fatalf("status = %s, want PENDING_PAYMENT", b.Status)
	}
	if b.Nights != 3 || b.TotalStay != 270000 || b.Deposit != 25000 || b.RemainingBalance != 245000 {
		t.Fatalf("totals = nights %d, stay %d, deposit %d, remaining %d", b.Nights, b.TotalStay, b.Deposit, b.RemainingBalance)
	}
	if !b.ExpiresAt.Equal(t0.Add(2 * time.Hour)) {
		t.Fatalf("expires_at = %v, want %v", b.ExpiresAt, t0.Add(2*time.Hour))
	}
	if len(b.PaymentReference) != 9 {
		t.Fatalf("payment reference %q must have 9 digits", b.PaymentReference)
	}
	if b.GuestEmail != "ana@example.com" {
		t.Fatalf("email must be normalized, got %q", b.GuestEmail)
	}
	if b.GuestPhone != "56987654321" {
		t.Fatalf("phone must be stored as digits, got %q", b.GuestPhone)
	}

	stored := f.get(t, b.ID)
	if !stored.CheckIn.Equal(june(10)) || !stored.CheckOut.Equal(june(13)) {
		t.Fatalf("stored stay = %v..%v", stored.CheckIn, stored.CheckOut)
	}
	if got := eventTypes(t, f.svc, b.ID); !slices.Equal(got, []model.EventType{model.EventTypeBookingCreated}) {
		t.Fatalf("events = %v", got)
	}
}

func TestBookingService_CreateBooking_CapacityRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, request(10, 13, 5))

	var vErr *booking.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if vErr.FieldErrors["guests"] == "" {
		t.Fatalf("expected guests error, got %v", vErr.FieldErrors)
	}

	all, err := f.svc.ListBookings(ctx, repository.BookingFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("no booking must be persisted, got %d", len(all))
	}
}

func TestBookingService_CreateBooking_UnknownApartment(t *testing.T) {
	f := newFixture(t)
	req := request(10, 13, 2)
	req.ApartmentID = "missing"

	_, err := f.svc.CreateBooking(context.Background(), req)

	var vErr *booking.ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["apartment_id"] == "" {
		t.Fatalf("err = %v, want apartment_id validation error", err)
	}
}

func TestBookingService_CreateBooking_ConflictAndBoundaryTouch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, 10, 13)

	_, err := f.svc.CreateBooking(ctx, request(12, 14, 2))
	var cErr *booking.ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if cErr.ConflictingID != first.ID {
		t.Fatalf("conflicting id = %s, want %s", cErr.ConflictingID, first.ID)
	}

	// выезд одного в день заезда другого не конфликт
	if _, err := f.svc.CreateBooking(ctx, request(13, 15, 2)); err != nil {
		t.Fatalf("boundary touch must be allowed: %v", err)
	}
	if _, err := f.svc.CreateBooking(ctx, request(7, 10, 2)); err != nil {
		t.Fatalf("boundary touch must be allowed: %v", err)
	}
}

func TestBookingService_CreateBooking_ExpiredHoldReleasesDates(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, 10, 13)
	f.clock.Advance(2*time.Hour + time.Minute)

	second := f.create(t, 11, 12)
	if second.Status != model.BookingStatusPendingPayment {
		t.Fatalf("status = %s", second.Status)
	}
	if got := f.get(t, first.ID).Status; got != model.BookingStatusExpired {
		t.Fatalf("first booking status = %s, want EXPIRED", got)
	}
}

func TestBookingService_CreateBooking_CancelledReleasesDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, 10, 13)
	if _, ok, err := f.svc.UpdateStatus(ctx, first.ID, "cancelled", "admin"); err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}
	if _, err := f.svc.CreateBooking(ctx, request(10, 13, 2)); err != nil {
		t.Fatalf("cancelled booking must not block dates: %v", err)
	}
}

func TestBookingService_CreateBooking_ConcurrentIdenticalRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		others    []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateBooking(ctx, request(10, 13, 2))

			mu.Lock()
			defer mu.Unlock()
			var cErr *booking.ConflictError
			switch {
			case err == nil:
				created++
			case errors.As(err, &cErr):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if created != 1 || conflicts != workers-1 {
		t.Fatalf("created = %d, conflicts = %d", created, conflicts)
	}
	if n := f.svc.locks.size(); n != 0 {
		t.Fatalf("locks left behind: %d", n)
	}
}

func TestBookingService_GetBooking_ExpiresAfterHoldWindow(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, 10, 13)

	f.clock.Set(t0.Add(2 * time.Hour))
	if got := f.get(t, b.ID).Status; got != model.BookingStatusPendingPayment {
		t.Fatalf("at exactly the hold window status = %s, want PENDING_PAYMENT", got)
	}

	f.clock.Set(t0.Add(2*time.Hour + time.Minute))
	got := f.get(t, b.ID)
	if got.Status != model.BookingStatusExpired {
		t.Fatalf("status = %s, want EXPIRED", got.Status)
	}
	if got.Version != 2 {
		t.Fatalf("version = %d, want 2", got.Version)
	}

	want := []model.EventType{model.EventTypeBookingCreated, model.EventTypeBookingExpired}
	if events := eventTypes(t, f.svc, b.ID); !slices.Equal(events, want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

func TestBookingService_UnknownIDIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, ok, err := f.svc.GetBooking(ctx, "RSV-NOPE"); ok || err != nil {
		t.Fatalf("GetBooking: ok=%v err=%v", ok, err)
	}
	if _, ok, err := f.svc.RegisterCheckIn(ctx, "RSV-NOPE", "rec", 0); ok || err != nil {
		t.Fatalf("RegisterCheckIn: ok=%v err=%v", ok, err)
	}
	if _, ok, err := f.svc.AddExtra(ctx, "RSV-NOPE", booking.ExtraInput{Description: "Towels", Quantity: 1, UnitPrice: 500}, "rec"); ok || err != nil {
		t.Fatalf("AddExtra: ok=%v err=%v", ok, err)
	}
	if _, ok, err := f.svc.RegisterRemainingPayment(ctx, "RSV-NOPE", "rec", "cash"); ok || err != nil {
		t.Fatalf("RegisterRemainingPayment: ok=%v err=%v", ok, err)
	}
	if _, ok, err := f.svc.RegisterCheckout(ctx, "RSV-NOPE", "rec"); ok || err != nil {
		t.Fatalf("RegisterCheckout: ok=%v err=%v", ok, err)
	}
	if _, ok, err := f.svc.UpdateStatus(ctx, "RSV-NOPE", "CANCELLED", "admin"); ok || err != nil {
		t.Fatalf("UpdateStatus: ok=%v err=%v", ok, err)
	}
}

func TestBookingService_FinalizesPaidStayOnCheckoutDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 10, 13)

	if _, _, err := f.svc.RegisterDepositPayment(ctx, b.ID, "transfer", "rec"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	paid, _, err := f.svc.RegisterRemainingPayment(ctx, b.ID, "rec", "card")
	if err != nil {
		t.Fatalf("remaining payment: %v", err)
	}
	if paid.Status != model.BookingStatusConfirmed || paid.RemainingBalance != 0 {
		t.Fatalf("before checkout day: status %s, balance %d", paid.Status, paid.RemainingBalance)
	}

	f.clock.Set(june(12).Add(23 * time.Hour))
	if got := f.get(t, b.ID).Status; got != model.BookingStatusConfirmed {
		t.Fatalf("day before checkout status = %s", got)
	}

	sweepAt := june(13).Add(30 * time.Minute)
	f.clock.Set(sweepAt)
	all, err := f.svc.ListBookings(ctx, repository.BookingFilter{ApartmentID: "apt-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Status != model.BookingStatusFinalized {
		t.Fatalf("bookings = %+v", all)
	}
	if all[0].CheckedOutAt == nil || !all[0].CheckedOutAt.Equal(sweepAt) {
		t.Fatalf("checked_out_at = %v, want %v", all[0].CheckedOutAt, sweepAt)
	}
}

func TestBookingService_RemainingPaymentOnCheckoutDayFinalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 10, 13)
	if _, _, err := f.svc.RegisterDepositPayment(ctx, b.ID, "transfer", "rec"); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	f.clock.Set(june(13).Add(11 * time.Hour))
	got, ok, err := f.svc.RegisterRemainingPayment(ctx, b.ID, "rec", "cash")
	if err != nil || !ok {
		t.Fatalf("remaining payment: ok=%v err=%v", ok, err)
	}
	if got.Status != model.BookingStatusFinalized || got.CheckOutOperator != "rec" || got.BalanceMethod != "cash" {
		t.Fatalf("booking = %+v", got)
	}
}

func TestBookingService_Sweep_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, 10, 13)
	f.create(t, 20, 22)

	f.clock.Advance(3 * time.Hour)
	n, err := f.svc.Sweep(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first sweep: n=%d err=%v", n, err)
	}
	first, _ := f.svc.ListBookings(ctx, repository.BookingFilter{})

	n, err = f.svc.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second sweep: n=%d err=%v", n, err)
	}
	second, _ := f.svc.ListBookings(ctx, repository.BookingFilter{})

	if len(first) != len(second) {
		t.Fatalf("sweep changed the collection size")
	}
	for i := range first {
		if first[i].Status != second[i].Status || first[i].Version != second[i].Version {
			t.Fatalf("booking %s changed on second sweep", first[i].ID)
		}
	}
}

func TestBookingService_ExtrasOnFinalizedBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 10, 13)
	if _, _, err := f.svc.RegisterDepositPayment(ctx, b.ID, "transfer", "rec"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	f.clock.Set(june(13).Add(10 * time.Hour))
	if _, _, err := f.svc.RegisterRemainingPayment(ctx, b.ID, "rec", "cash"); err != nil {
		t.Fatalf("remaining payment: %v", err)
	}

	for _, in := range []booking.ExtraInput{
		{Description: "Breakfast", Quantity: 2, UnitPrice: 500},
		{Description: "Late checkout", Quantity: 1, UnitPrice: 8000},
	} {
		if _, ok, err := f.svc.AddExtra(ctx, b.ID, in, "rec"); err != nil || !ok {
			t.Fatalf("add extra: ok=%v err=%v", ok, err)
		}
	}

	got := f.get(t, b.ID)
	totals, err := booking.Summary(got)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.Status != model.BookingStatusFinalized {
		t.Fatalf("status = %s", got.Status)
	}
	if totals.ExtrasTotal != 9000 || totals.FinalBalance != 9000 || got.RemainingBalance != 0 {
		t.Fatalf("totals = %+v", totals)
	}
	if len(got.Extras) != 2 || got.Extras[0].ID == "" || got.Extras[1].Description != "Late checkout" {
		t.Fatalf("extras = %+v", got.Extras)
	}
}

func TestBookingService_RegisterCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 10, 13)

	// без депозита статус не меняется, но заезд фиксируется
	pending, _, err := f.svc.RegisterCheckIn(ctx, b.ID, "rec", 0)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if pending.Status != model.BookingStatusPendingPayment || pending.CheckedInAt == nil {
		t.Fatalf("pending check-in = %+v", pending)
	}

	if _, _, err := f.svc.RegisterDepositPayment(ctx, b.ID, "transfer", "rec"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	f.clock.Set(june(10).Add(15 * time.Hour))
	got, ok, err := f.svc.RegisterCheckIn(ctx, b.ID, "maria", 2)
	if err != nil || !ok {
		t.Fatalf("check-in: ok=%v err=%v", ok, err)
	}
	if got.Status != model.BookingStatusCheckedIn || got.CheckInOperator != "maria" {
		t.Fatalf("booking = %+v", got)
	}
	if len(got.Extras) != 1 || got.Extras[0].Quantity != 2 || got.Extras[0].UnitPrice != booking.DefaultExtraGuestFee {
		t.Fatalf("extra guests charge = %+v", got.Extras)
	}
	if got.RemainingBalance != 245000 {
		t.Fatalf("extras must not touch the remaining balance, got %d", got.RemainingBalance)
	}

	if _, _, err := f.svc.RegisterCheckIn(ctx, b.ID, "maria", -1); err == nil {
		t.Fatalf("negative extra guests must be rejected")
	}
}

func TestBookingService_RegisterCheckout_BypassesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 10, 13)
	if _, _, err := f.svc.RegisterDepositPayment(ctx, b.ID, "transfer", "rec"); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	got, ok, err := f.svc.RegisterCheckout(ctx, b.ID, "maria")
	if err != nil || !ok {
		t.Fatalf("checkout: ok=%v err=%v", ok, err)
	}
	if got.Status != model.BookingStatusFinalized || got.RemainingBalance != 245000 || got.CheckOutOperator != "maria" {
		t.Fatalf("booking = %+v", got)
	}

	events, err := f.svc.Events(ctx, b.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	last := events[len(events)-1]
	if last.EventType != model.EventTypeBookingCheckedOut || last.Operator != "maria" {
		t.Fatalf("last event = %+v", last)
	}
}

func TestBookingService_RegisterDepositPayment_AfterExpiry(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, 10, 13)
	f.clock.Advance(3 * time.Hour)

	_, _, err := f.svc.RegisterDepositPayment(context.Background(), b.ID, "transfer", "rec")
	if !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
	if got := f.get(t, b.ID).Status; got != model.BookingStatusExpired {
		t.Fatalf("status = %s, want EXPIRED", got)
	}
}

func TestBookingService_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 10, 13)

	if _, _, err := f.svc.UpdateStatus(ctx, b.ID, "ON_HOLD", "admin"); err == nil {
		t.Fatalf("unknown status must be rejected")
	}

	got, ok, err := f.svc.UpdateStatus(ctx, b.ID, "confirmed", "admin")
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	if got.Status != model.BookingStatusConfirmed {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestBookingService_FindBySecureLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 10, 13)

	cases := []struct {
		name    string
		id      string
		contact string
		want    bool
	}{
		{name: "email", id: b.ID, contact: "ANA@example.com", want: true},
		{name: "lower case id", id: " rsv-00000001 ", contact: "ana@example.com", want: true},
		{name: "phone fragment", id: b.ID, contact: "8765 4321", want: true},
		{name: "wrong email", id: b.ID, contact: "other@example.com"},
		{name: "short fragment", id: b.ID, contact: "4321"},
		{name: "unknown id", id: "RSV-99999999", contact: "ana@example.com"},
		{name: "empty contact", id: b.ID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := f.svc.FindBySecureLookup(ctx, tc.id, tc.contact)
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if ok != tc.want {
				t.Fatalf("ok = %v, want %v", ok, tc.want)
			}
			if ok && got.ID != b.ID {
				t.Fatalf("id = %s, want %s", got.ID, b.ID)
			}
		})
	}
}

func TestBookingService_PropertyTimeZone(t *testing.T) {
	db := newTestDB(t)
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	policy := booking.DefaultPolicy()
	policy.Location = loc

	clock := &testClock{now: t0}
	svc := NewBookingServiceWithLogger(db, policy, sequentialIDs(), clock.Now, discardLogger())
	seedApartment(t, db, model.Apartment{ID: "apt-1", Name: "Loft", NightlyPrice: 90000, Capacity: 4, Status: model.ApartmentStatusActive})

	req := request(10, 13, 2)
	req.CheckIn = time.Date(2025, time.June, 10, 15, 0, 0, 0, loc)
	req.CheckOut = time.Date(2025, time.June, 13, 11, 0, 0, 0, loc)
	b, err := svc.CreateBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if want := time.Date(2025, time.June, 10, 0, 0, 0, 0, loc); !b.CheckIn.Equal(want) {
		t.Fatalf("check-in = %v, want %v", b.CheckIn, want)
	}
	if b.Nights != 3 {
		t.Fatalf("nights = %d", b.Nights)
	}
}

func TestBookingService_AddExtra_RejectsOversizedAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 10, 13)

	_, _, err := f.svc.AddExtra(ctx, b.ID, booking.ExtraInput{
		Description: "Suite",
		Quantity:    10_000_000_000,
		UnitPrice:   10_000_000_000,
	}, "rec")
	var vErr *booking.ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["quantity"] == "" || vErr.FieldErrors["unit_price"] == "" {
		t.Fatalf("err = %v, want quantity and unit_price errors", err)
	}

	if _, _, err := f.svc.RegisterCheckIn(ctx, b.ID, "rec", 1_000_000_000); !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want validation error on extra_guests", err)
	}

	// ставка за гостя из конфигурации настолько велика, что итог переполнился бы
	policy := booking.DefaultPolicy()
	policy.ExtraGuestFee = math.MaxInt64 / 2
	pricey := NewBookingServiceWithLogger(f.db, policy, sequentialIDs(), f.clock.Now, discardLogger())
	_, _, err = pricey.RegisterCheckIn(ctx, b.ID, "rec", 3)
	if !errors.As(err, &vErr) || vErr.FieldErrors["extra_guests"] == "" {
		t.Fatalf("err = %v, want extra_guests overflow error", err)
	}

	got := f.get(t, b.ID)
	if len(got.Extras) != 0 || got.Version != b.Version || got.CheckedInAt != nil {
		t.Fatalf("rejected changes must not be stored: %+v", got)
	}
}

func TestBookingService_UpdateStatus_ReactivationKeepsDatesExclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, 10, 13)
	if _, _, err := f.svc.UpdateStatus(ctx, first.ID, "CANCELLED", "admin"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	second := f.create(t, 11, 12)

	_, _, err := f.svc.UpdateStatus(ctx, first.ID, "CONFIRMED", "admin")
	var cErr *booking.ConflictError
	if !errors.As(err, &cErr) || cErr.ConflictingID != second.ID {
		t.Fatalf("err = %v, want conflict with %s", err, second.ID)
	}
	if got := f.get(t, first.ID).Status; got != model.BookingStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", got)
	}

	// второй держатель просрочен, но sweep его ещё не трогал
	f.clock.Advance(3 * time.Hour)
	got, ok, err := f.svc.UpdateStatus(ctx, first.ID, "CONFIRMED", "admin")
	if err != nil || !ok || got.Status != model.BookingStatusConfirmed {
		t.Fatalf("reactivate: %+v ok=%v err=%v", got, ok, err)
	}

	// смена между статусами, которые держат даты, ничего не проверяет
	if _, _, err := f.svc.UpdateStatus(ctx, first.ID, "CHECKED_IN", "admin"); err != nil {
		t.Fatalf("checked in: %v", err)
	}

	active, err := f.svc.ListBookings(ctx, repository.BookingFilter{ApartmentID: "apt-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	holding := 0
	for _, b := range active {
		if b.Status.HoldsDates() {
			holding++
		}
	}
	if holding != 1 {
		t.Fatalf("bookings holding overlapping dates = %d, want 1", holding)
	}
}

func TestBookingService_FindBySecureLookup_MixedCaseIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewBookingServiceWithLogger(f.db, booking.DefaultPolicy(), func() string { return "rsv-MixEd-7" }, f.clock.Now, discardLogger())

	b, err := svc.CreateBooking(ctx, request(10, 13, 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, id := range []string{"RSV-MIXED-7", "rsv-mixed-7", b.ID} {
		got, ok, err := svc.FindBySecureLookup(ctx, id, "ana@example.com")
		if err != nil || !ok || got.ID != b.ID {
			t.Fatalf("lookup %q: %+v ok=%v err=%v", id, got, ok, err)
		}
	}
}
