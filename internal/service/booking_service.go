package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/apartment-booking/internal/booking"
	"github.com/Leganyst/apartment-booking/internal/model"
	"github.com/Leganyst/apartment-booking/internal/repository"
)

// BookingService ведёт жизненный цикл броней поверх БД.
//
// Создание и любые изменения статуса по одному апартаменту идут под его
// мьютексом. Между процессами: каждая запись в bookings сравнивает версию
// строки, а создание и возврат брони в занимающий даты статус блокируют
// строку апартамента (SELECT ... FOR UPDATE).
type BookingService struct {
	db          *gorm.DB
	policy      booking.Policy
	locks       *keyedMutex
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

func NewBookingService(db *gorm.DB, policy booking.Policy, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(db, policy, idGenerator, now, nil)
}

func NewBookingServiceWithLogger(
	db *gorm.DB,
	policy booking.Policy,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *BookingService {
	if idGenerator == nil {
		idGenerator = booking.NewBookingID
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		db:          db,
		policy:      policy,
		locks:       newKeyedMutex(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Policy возвращает правила, с которыми работает сервис.
func (s *BookingService) Policy() booking.Policy {
	return s.policy
}

func (s *BookingService) clock() time.Time {
	return s.now().UTC()
}

// change: результат операции над бронью, уходит в журнал событий.
type change struct {
	transition booking.Transition
	operator   string
	details    string
}

// txRepos: репозитории текущей транзакции.
type txRepos struct {
	bookings   repository.BookingRepository
	apartments repository.ApartmentRepository
}

type mutation func(repos txRepos, b *model.Booking, now time.Time) (change, error)

// ---------- чтение ----------

// ListBookings прогоняет sweep и отдаёт брони по фильтру.
func (s *BookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]model.Booking, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	bookings, err := repository.NewGormBookingRepository(s.db).List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// GetBooking возвращает бронь с уже применёнными переходами по времени.
// Неизвестный id: ok == false, err == nil.
func (s *BookingService) GetBooking(ctx context.Context, id string) (model.Booking, bool, error) {
	current, err := repository.NewGormBookingRepository(s.db).GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, fmt.Errorf("get booking: %w", err)
	}

	now := s.clock()
	preview := *current
	if _, due := booking.SweepOne(&preview, now, s.policy.Loc()); !due {
		return *current, true, nil
	}

	b, _, err := s.sweepByID(ctx, current.ApartmentID, current.ID, now)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

// FindBySecureLookup: самообслуживание гостя: номер брони (без учёта
// регистра) плюс e-mail или часть телефона из брони.
func (s *BookingService) FindBySecureLookup(ctx context.Context, id, contact string) (model.Booking, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.TrimSpace(contact) == "" {
		return model.Booking{}, false, nil
	}

	found, err := repository.NewGormBookingRepository(s.db).FindByIDFold(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, fmt.Errorf("find booking: %w", err)
	}

	b, ok, err := s.GetBooking(ctx, found.ID)
	if err != nil || !ok {
		return model.Booking{}, false, err
	}
	if !booking.MatchesContact(b, contact) {
		s.loggerWith(ctx, "FindBySecureLookup", "booking_id", id).
			InfoContext(ctx, "secure lookup rejected")
		return model.Booking{}, false, nil
	}
	return b, true, nil
}

// Events возвращает журнал изменений брони.
func (s *BookingService) Events(ctx context.Context, bookingID string) ([]model.Event, error) {
	events, err := repository.NewGormEventRepository(s.db).ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ---------- создание ----------

// CreateBooking проверяет заявку, под мьютексом апартамента заново проверяет
// свободные даты и сохраняет бронь в статусе PENDING_PAYMENT.
func (s *BookingService) CreateBooking(ctx context.Context, req booking.CreateBookingRequest) (created model.Booking, err error) {
	req = req.Normalize()
	logger := s.loggerWith(ctx, "CreateBooking", "apartment_id", req.ApartmentID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "booking rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking created",
			"booking_id", created.ID,
			"nights", created.Nights,
			"total_stay", created.TotalStay,
		)
	}()

	if vErr := req.Validate(); vErr != nil {
		err = vErr
		return
	}

	apt, err := repository.NewGormApartmentRepository(s.db).GetByID(ctx, req.ApartmentID)
	if errors.Is(err, repository.ErrNotFound) {
		vErr := &booking.ValidationError{}
		vErr.Add("apartment_id", "apartment not found")
		err = vErr
		return
	}
	if err != nil {
		err = fmt.Errorf("get apartment: %w", err)
		return
	}

	stay, vErr := booking.ValidateStay(req, *apt, s.policy.Loc())
	if vErr != nil {
		err = vErr
		return
	}

	unlock := s.locks.Lock(apt.ID)
	defer unlock()

	now := s.clock()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := repository.NewGormBookingRepository(tx)
		events := repository.NewGormEventRepository(tx)

		// другой процесс с тем же апартаментом ждёт здесь до конца транзакции
		if _, err := repository.NewGormApartmentRepository(tx).LockByID(ctx, apt.ID); err != nil {
			return fmt.Errorf("lock apartment: %w", err)
		}

		holding, err := bookings.ListHoldingDates(ctx, apt.ID)
		if err != nil {
			return fmt.Errorf("list apartment bookings: %w", err)
		}
		for i := range holding {
			if _, err := s.applySweep(ctx, bookings, events, &holding[i], now); err != nil {
				return err
			}
		}

		if other, found := booking.FindConflict(holding, apt.ID, stay.Range.Start, stay.Range.End); found {
			return &booking.ConflictError{ApartmentID: apt.ID, ConflictingID: other.ID}
		}

		b := model.Booking{
			ID:               s.idGenerator(),
			PaymentReference: booking.NewPaymentReference(),
			ApartmentID:      apt.ID,
			CheckIn:          stay.Range.Start.UTC(),
			CheckOut:         stay.Range.End.UTC(),
			Nights:           stay.Nights,
			Guests:           req.Guests,
			GuestName:        req.GuestName,
			GuestPhone:       booking.NormalizePhone(req.GuestPhone),
			GuestEmail:       req.GuestEmail,
			TotalStay:        stay.TotalStay,
			Deposit:          s.policy.Deposit,
			RemainingBalance: booking.RemainingAfterDeposit(stay.TotalStay, s.policy.Deposit),
			Status:           model.BookingStatusPendingPayment,
			CreatedAt:        now,
			UpdatedAt:        now,
			ExpiresAt:        now.Add(s.policy.HoldWindow),
			Version:          1,
			SchemaVersion:    model.SchemaVersion,
		}
		if err := bookings.Create(ctx, &b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		if err := events.Create(ctx, &model.Event{
			EventType: model.EventTypeBookingCreated,
			CreatedAt: now,
			BookingID: b.ID,
			Details:   fmt.Sprintf("%s %s..%s", b.ApartmentID, b.CheckIn.Format(time.DateOnly), b.CheckOut.Format(time.DateOnly)),
		}); err != nil {
			return fmt.Errorf("create event: %w", err)
		}

		created = b
		return nil
	})
	if err != nil {
		created = model.Booking{}
	}
	return
}

// ---------- операции оператора ----------

// UpdateStatus: ручная смена статуса администратором, переходы не проверяются.
// Бронь, которая отпустила даты, возвращается в занимающий статус только если
// даты всё ещё свободны.
func (s *BookingService) UpdateStatus(ctx context.Context, id, status, operator string) (model.Booking, bool, error) {
	next, err := model.ParseBookingStatus(strings.ToUpper(strings.TrimSpace(status)))
	if err != nil {
		vErr := &booking.ValidationError{}
		vErr.Add("status", "unknown booking status")
		return model.Booking{}, false, vErr
	}

	return s.mutate(ctx, "UpdateStatus", id, func(repos txRepos, b *model.Booking, now time.Time) (change, error) {
		if next.HoldsDates() && !b.Status.HoldsDates() {
			if err := s.checkDatesFree(ctx, repos, b, now); err != nil {
				return change{}, err
			}
		}
		t := booking.ApplyStatus(b, next)
		return change{transition: t, operator: operator, details: t.String()}, nil
	})
}

// checkDatesFree проверяет, что даты b никто не занял, пока она их не держала.
// Просроченные, но ещё не обработанные sweep брони дат не держат.
func (s *BookingService) checkDatesFree(ctx context.Context, repos txRepos, b *model.Booking, now time.Time) error {
	if _, err := repos.apartments.LockByID(ctx, b.ApartmentID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lock apartment: %w", err)
	}
	holding, err := repos.bookings.ListHoldingDates(ctx, b.ApartmentID)
	if err != nil {
		return fmt.Errorf("list apartment bookings: %w", err)
	}
	others := slices.DeleteFunc(booking.Sweep(holding, now, s.policy.Loc()), func(o model.Booking) bool {
		return o.ID == b.ID
	})
	if other, found := booking.FindConflict(others, b.ApartmentID, b.CheckIn, b.CheckOut); found {
		return &booking.ConflictError{ApartmentID: b.ApartmentID, ConflictingID: other.ID}
	}
	return nil
}

// RegisterDepositPayment подтверждает бронь после оплаты депозита.
func (s *BookingService) RegisterDepositPayment(ctx context.Context, id, method, operator string) (model.Booking, bool, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		vErr := &booking.ValidationError{}
		vErr.Add("method", "payment method is required")
		return model.Booking{}, false, vErr
	}

	return s.mutate(ctx, "RegisterDepositPayment", id, func(_ txRepos, b *model.Booking, _ time.Time) (change, error) {
		t, err := booking.ApplyDeposit(b, method)
		if err != nil {
			return change{}, err
		}
		return change{transition: t, operator: operator, details: method}, nil
	})
}

// RegisterCheckIn фиксирует заезд. Доп. гости добавляются строкой extras
// по фиксированной ставке за гостя.
func (s *BookingService) RegisterCheckIn(ctx context.Context, id, operator string, extraGuests int) (model.Booking, bool, error) {
	if extraGuests < 0 || int64(extraGuests) > booking.MaxQuantity {
		vErr := &booking.ValidationError{}
		vErr.Add("extra_guests", fmt.Sprintf("must be between 0 and %d", booking.MaxQuantity))
		return model.Booking{}, false, vErr
	}

	return s.mutate(ctx, "RegisterCheckIn", id, func(_ txRepos, b *model.Booking, now time.Time) (change, error) {
		t := booking.ApplyCheckIn(b, operator, now)
		details := t.String()
		if extraGuests > 0 {
			err := booking.ApplyExtra(b, model.Extra{
				ID:          booking.NewExtraID(),
				Description: booking.ExtraGuestDescription,
				Quantity:    int64(extraGuests),
				UnitPrice:   s.policy.ExtraGuestFee,
				CreatedAt:   now,
			})
			if err != nil {
				return change{}, amountError("extra_guests", err)
			}
			details = fmt.Sprintf("%s, extra guests: %d", details, extraGuests)
		}
		return change{transition: t, operator: operator, details: details}, nil
	})
}

// AddExtra добавляет доп. услугу. Остаток по проживанию не меняется.
func (s *BookingService) AddExtra(ctx context.Context, id string, in booking.ExtraInput, operator string) (model.Booking, bool, error) {
	in.Description = strings.TrimSpace(in.Description)
	if vErr := in.Validate(); vErr != nil {
		return model.Booking{}, false, vErr
	}

	return s.mutate(ctx, "AddExtra", id, func(_ txRepos, b *model.Booking, now time.Time) (change, error) {
		err := booking.ApplyExtra(b, model.Extra{
			ID:          booking.NewExtraID(),
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			CreatedAt:   now,
		})
		if err != nil {
			return change{}, amountError("unit_price", err)
		}
		return change{
			transition: booking.Transition{From: b.Status, To: b.Status, Event: model.EventTypeBookingExtraAdded},
			operator:   operator,
			details:    fmt.Sprintf("%s x%d @ %d", in.Description, in.Quantity, in.UnitPrice),
		}, nil
	})
}

// RegisterRemainingPayment гасит остаток; в день выезда и позже бронь
// сразу закрывается.
func (s *BookingService) RegisterRemainingPayment(ctx context.Context, id, operator, method string) (model.Booking, bool, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		vErr := &booking.ValidationError{}
		vErr.Add("method", "payment method is required")
		return model.Booking{}, false, vErr
	}

	return s.mutate(ctx, "RegisterRemainingPayment", id, func(_ txRepos, b *model.Booking, now time.Time) (change, error) {
		paid := b.RemainingBalance
		t := booking.ApplyRemainingPayment(b, operator, method, now, s.policy.Loc())
		return change{
			transition: t,
			operator:   operator,
			details:    fmt.Sprintf("%s %d, %s", method, paid, t),
		}, nil
	})
}

// RegisterCheckout закрывает бронь без проверки остатка.
func (s *BookingService) RegisterCheckout(ctx context.Context, id, operator string) (model.Booking, bool, error) {
	return s.mutate(ctx, "RegisterCheckout", id, func(_ txRepos, b *model.Booking, now time.Time) (change, error) {
		owed, err := booking.FinalBalance(*b)
		if err != nil {
			return change{}, fmt.Errorf("final balance: %w", err)
		}
		from := b.Status
		t := booking.ApplyCheckout(b, operator, now)
		details := t.String()
		if owed > 0 {
			details = fmt.Sprintf("%s, outstanding %d", details, owed)
			s.loggerWith(ctx, "RegisterCheckout", "booking_id", b.ID).
				WarnContext(ctx, "checkout with outstanding balance",
					"from", from,
					"outstanding", owed,
					"operator", operator,
				)
		}
		return change{transition: t, operator: operator, details: details}, nil
	})
}

// ---------- sweep ----------

// Sweep применяет переходы по времени ко всем броням, которые их ждут,
// и возвращает число изменённых.
func (s *BookingService) Sweep(ctx context.Context) (swept int, err error) {
	candidates, err := repository.NewGormBookingRepository(s.db).ListSweepCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sweep candidates: %w", err)
	}

	now := s.clock()
	loc := s.policy.Loc()
	for _, c := range candidates {
		preview := c
		if _, due := booking.SweepOne(&preview, now, loc); !due {
			continue
		}

		_, changed, err := s.sweepByID(ctx, c.ApartmentID, c.ID, now)
		if errors.Is(err, repository.ErrVersionConflict) {
			// запись поменял другой процесс, разберёмся на следующем чтении
			s.loggerWith(ctx, "Sweep", "booking_id", c.ID).DebugContext(ctx, "sweep skipped", "error", err)
			continue
		}
		if err != nil {
			return swept, err
		}
		if changed {
			swept++
		}
	}

	if swept > 0 {
		s.loggerWith(ctx, "Sweep").InfoContext(ctx, "bookings swept", "count", swept)
	}
	return swept, nil
}

func (s *BookingService) sweepByID(ctx context.Context, apartmentID, id string, now time.Time) (model.Booking, bool, error) {
	unlock := s.locks.Lock(apartmentID)
	defer unlock()

	var (
		out     model.Booking
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := repository.NewGormBookingRepository(tx)
		b, err := bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}
		changed, err = s.applySweep(ctx, bookings, repository.NewGormEventRepository(tx), b, now)
		if err != nil {
			return err
		}
		out = *b
		return nil
	})
	return out, changed, err
}

// applySweep меняет статус b, если пришло время, и сохраняет изменение в рамках
// текущей транзакции. Вызывается только под мьютексом апартамента.
func (s *BookingService) applySweep(
	ctx context.Context,
	bookings repository.BookingRepository,
	events repository.EventRepository,
	b *model.Booking,
	now time.Time,
) (bool, error) {
	t, ok := booking.SweepOne(b, now, s.policy.Loc())
	if !ok {
		return false, nil
	}

	b.UpdatedAt = now
	if err := bookings.Update(ctx, b); err != nil {
		return false, fmt.Errorf("sweep booking %s: %w", b.ID, err)
	}
	if err := events.Create(ctx, &model.Event{
		EventType: t.Event,
		CreatedAt: now,
		BookingID: b.ID,
		Details:   t.String(),
	}); err != nil {
		return false, fmt.Errorf("create event: %w", err)
	}
	return true, nil
}

// mutate: найти бронь, взять мьютекс её апартамента и в одной транзакции
// перечитать, применить sweep, выполнить fn и записать результат с событием.
func (s *BookingService) mutate(ctx context.Context, operation, id string, fn mutation) (out model.Booking, ok bool, err error) {
	logger := s.loggerWith(ctx, operation, "booking_id", id)
	defer func() {
		switch {
		case err != nil:
			logger.WarnContext(ctx, "booking update failed", "error", err, "error_kind", ErrorKind(err))
		case !ok:
			logger.InfoContext(ctx, "booking not found")
		default:
			logger.InfoContext(ctx, "booking updated", "status", out.Status, "version", out.Version)
		}
	}()

	current, err := repository.NewGormBookingRepository(s.db).GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, fmt.Errorf("get booking: %w", err)
	}

	unlock := s.locks.Lock(current.ApartmentID)
	defer unlock()

	now := s.clock()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := repository.NewGormBookingRepository(tx)
		events := repository.NewGormEventRepository(tx)

		b, err := bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.applySweep(ctx, bookings, events, b, now); err != nil {
			return err
		}

		c, err := fn(txRepos{bookings: bookings, apartments: repository.NewGormApartmentRepository(tx)}, b, now)
		if err != nil {
			return err
		}

		b.UpdatedAt = now
		if err := bookings.Update(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if err := events.Create(ctx, &model.Event{
			EventType: c.transition.Event,
			CreatedAt: now,
			BookingID: b.ID,
			Operator:  c.operator,
			Details:   c.details,
		}); err != nil {
			return fmt.Errorf("create event: %w", err)
		}

		out = *b
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}
	return out, true, nil
}

// amountError переводит переполнение суммы в ошибку поля.
func amountError(field string, err error) error {
	if !errors.Is(err, booking.ErrAmountOverflow) {
		return err
	}
	vErr := &booking.ValidationError{}
	vErr.Add(field, "booking total exceeds the supported amount")
	return vErr
}
