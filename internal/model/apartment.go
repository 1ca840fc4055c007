package model

import "time"

type ApartmentStatus string

const (
	ApartmentStatusActive   ApartmentStatus = "active"
	ApartmentStatusInactive ApartmentStatus = "inactive"
)

// apartments
type Apartment struct {
	ID   string `gorm:"type:varchar(64);primaryKey"`
	Name string `gorm:"type:varchar(255);not null"`
	// Цена за ночь в целых единицах валюты.
	NightlyPrice int64           `gorm:"not null"`
	Capacity     int             `gorm:"not null"`
	Status       ApartmentStatus `gorm:"type:varchar(16);not null;default:'active';index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (a Apartment) IsActive() bool {
	return a.Status == ApartmentStatusActive
}
