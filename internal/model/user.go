package model

import (
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRoleManager      UserRole = "manager"
	UserRoleReceptionist UserRole = "receptionist"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBlocked  UserStatus = "blocked"
)

// users: операторы (сотрудники), которые ведут брони.
type User struct {
	ID          string     `gorm:"type:varchar(64);primaryKey"`
	Username    string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	DisplayName string     `gorm:"type:varchar(255)"`
	Role        UserRole   `gorm:"type:varchar(32);not null"`
	Status      UserStatus `gorm:"type:varchar(16);not null;default:'active'"`
	// Явный список прав; пустой: права берутся из роли.
	Permissions datatypes.JSONSlice[string]

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
