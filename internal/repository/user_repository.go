package repository

import (
	"context"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/apartment-booking/internal/model"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	SetRole(ctx context.Context, userID string, role model.UserRole) error
	SetStatus(ctx context.Context, userID string, status model.UserStatus) error
	// Пустой список сбрасывает пользователя на права роли.
	SetPermissions(ctx context.Context, userID string, permissions []string) error
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("username = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&u).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *model.User) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Status == "" {
		user.Status = model.UserStatusActive
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *GormUserRepository) SetRole(ctx context.Context, userID string, role model.UserRole) error {
	return r.update(ctx, userID, map[string]any{"role": role})
}

func (r *GormUserRepository) SetStatus(ctx context.Context, userID string, status model.UserStatus) error {
	return r.update(ctx, userID, map[string]any{"status": status})
}

func (r *GormUserRepository) SetPermissions(ctx context.Context, userID string, permissions []string) error {
	return r.update(ctx, userID, map[string]any{"permissions": datatypes.JSONSlice[string](permissions)})
}

func (r *GormUserRepository) update(ctx context.Context, userID string, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
