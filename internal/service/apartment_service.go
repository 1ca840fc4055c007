package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Leganyst/apartment-booking/internal/booking"
	"github.com/Leganyst/apartment-booking/internal/model"
	"github.com/Leganyst/apartment-booking/internal/repository"
)

// ApartmentService: справочник апартаментов.
type ApartmentService struct {
	apartments repository.ApartmentRepository
	now        func() time.Time
	logger     *slog.Logger
}

func NewApartmentService(apartments repository.ApartmentRepository, now func() time.Time, logger *slog.Logger) *ApartmentService {
	if now == nil {
		now = time.Now
	}
	return &ApartmentService{apartments: apartments, now: now, logger: defaultLogger(logger)}
}

// SaveApartment создаёт апартамент или обновляет существующий с тем же ID.
// Цена уже созданных броней не пересчитывается.
func (s *ApartmentService) SaveApartment(ctx context.Context, in booking.ApartmentInput) (model.Apartment, error) {
	apt, vErr := in.Validate()
	if vErr != nil {
		return model.Apartment{}, vErr
	}

	now := s.now().UTC()
	apt.CreatedAt = now
	apt.UpdatedAt = now
	if err := s.apartments.Save(ctx, &apt); err != nil {
		return model.Apartment{}, fmt.Errorf("save apartment: %w", err)
	}

	saved, err := s.apartments.GetByID(ctx, apt.ID)
	if err != nil {
		return model.Apartment{}, fmt.Errorf("reload apartment: %w", err)
	}

	serviceLogger(ctx, s.logger, "ApartmentService", "SaveApartment", "apartment_id", saved.ID).
		InfoContext(ctx, "apartment saved", "status", saved.Status, "nightly_price", saved.NightlyPrice)
	return *saved, nil
}

func (s *ApartmentService) ListApartments(ctx context.Context, onlyActive bool) ([]model.Apartment, error) {
	apartments, err := s.apartments.List(ctx, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("list apartments: %w", err)
	}
	return apartments, nil
}
