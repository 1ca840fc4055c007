package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/apartment-booking/internal/model"
)

type ApartmentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Apartment, error)
	// Прочитать апартамент с блокировкой строки до конца транзакции
	// (SELECT ... FOR UPDATE; в SQLite блокировку даёт сама транзакция).
	LockByID(ctx context.Context, id string) (*model.Apartment, error)
	// Создать или обновить апартамент по ID.
	Save(ctx context.Context, apartment *model.Apartment) error
	List(ctx context.Context, onlyActive bool) ([]model.Apartment, error)
}

type GormApartmentRepository struct {
	db *gorm.DB
}

func NewGormApartmentRepository(db *gorm.DB) *GormApartmentRepository {
	return &GormApartmentRepository{db: db}
}

func (r *GormApartmentRepository) GetByID(ctx context.Context, id string) (*model.Apartment, error) {
	var a model.Apartment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *GormApartmentRepository) LockByID(ctx context.Context, id string) (*model.Apartment, error) {
	var a model.Apartment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *GormApartmentRepository) Save(ctx context.Context, apartment *model.Apartment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "nightly_price", "capacity", "status", "updated_at"}),
		}).
		Create(apartment).Error
}

func (r *GormApartmentRepository) List(ctx context.Context, onlyActive bool) ([]model.Apartment, error) {
	q := r.db.WithContext(ctx).Model(&model.Apartment{})
	if onlyActive {
		q = q.Where("status = ?", model.ApartmentStatusActive)
	}

	var apartments []model.Apartment
	if err := q.Order("name ASC").Find(&apartments).Error; err != nil {
		return nil, err
	}
	return apartments, nil
}
