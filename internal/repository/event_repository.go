package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/apartment-booking/internal/model"
)

// Журнал событий по броням, только добавление и чтение.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	ListByBooking(ctx context.Context, bookingID string) ([]model.Event, error)
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Create(ctx context.Context, event *model.Event) error {
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewV7()).String()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormEventRepository) ListByBooking(ctx context.Context, bookingID string) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
