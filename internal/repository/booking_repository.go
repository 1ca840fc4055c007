package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/apartment-booking/internal/model"
)

// BookingFilter сужает выборку броней; пустые поля не фильтруют.
type BookingFilter struct {
	ApartmentID string
	Statuses    []model.BookingStatus
}

type BookingRepository interface {
	// Создать новое бронирование.
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронирование по ID.
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// Получить бронирование по ID без учёта регистра (номер вводит гость).
	FindByIDFold(ctx context.Context, id string) (*model.Booking, error)
	// Список броней по фильтру, по дате заезда.
	List(ctx context.Context, filter BookingFilter) ([]model.Booking, error)
	// Брони апартамента, которые занимают даты (не отменены и не истекли).
	ListHoldingDates(ctx context.Context, apartmentID string) ([]model.Booking, error)
	// Брони, которые могут сменить статус по времени.
	ListSweepCandidates(ctx context.Context) ([]model.Booking, error)
	// Сохранить изменения, если версия в БД совпадает с booking.Version.
	// При успехе booking.Version увеличивается.
	Update(ctx context.Context, booking *model.Booking) error
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if booking.Version == 0 {
		booking.Version = 1
	}
	if booking.SchemaVersion == 0 {
		booking.SchemaVersion = model.SchemaVersion
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

func (r *GormBookingRepository) FindByIDFold(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	err := r.db.WithContext(ctx).
		Where("UPPER(id) = UPPER(?)", id).
		Order("id ASC").
		First(&b).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

func (r *GormBookingRepository) List(ctx context.Context, filter BookingFilter) ([]model.Booking, error) {
	q := r.db.WithContext(ctx).Model(&model.Booking{})
	if filter.ApartmentID != "" {
		q = q.Where("apartment_id = ?", filter.ApartmentID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}

	var bookings []model.Booking
	if err := q.Order("check_in ASC").Order("id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) ListHoldingDates(ctx context.Context, apartmentID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("apartment_id = ?", apartmentID).
		Where("status NOT IN ?", []model.BookingStatus{model.BookingStatusCancelled, model.BookingStatusExpired}).
		Order("check_in ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) ListSweepCandidates(ctx context.Context) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", model.BookingStatusPendingPayment).
		Or("status IN ? AND remaining_balance = 0", []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusCheckedIn}).
		Order("id ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND version = ?", booking.ID, booking.Version).
		Updates(map[string]any{
			"guests":             booking.Guests,
			"total_stay":         booking.TotalStay,
			"deposit":            booking.Deposit,
			"remaining_balance":  booking.RemainingBalance,
			"status":             booking.Status,
			"updated_at":         booking.UpdatedAt,
			"expires_at":         booking.ExpiresAt,
			"checked_in_at":      booking.CheckedInAt,
			"checked_out_at":     booking.CheckedOutAt,
			"check_in_operator":  booking.CheckInOperator,
			"check_out_operator": booking.CheckOutOperator,
			"extras":             booking.Extras,
			"deposit_method":     booking.DepositMethod,
			"balance_method":     booking.BalanceMethod,
			"version":            booking.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	booking.Version++
	return nil
}
