package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SchemaVersion: версия схемы, которую понимает текущая сборка.
const SchemaVersion = 1

// schema_meta: одна строка с версией схемы.
type SchemaMeta struct {
	ID        int `gorm:"primaryKey"`
	Version   int `gorm:"not null"`
	UpdatedAt time.Time
}

func (SchemaMeta) TableName() string { return "schema_meta" }

// AutoMigrate выполняет миграцию всех сущностей и фиксирует версию схемы.
// База, помеченная более новой версией, не трогается.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&SchemaMeta{}); err != nil {
		return err
	}

	var meta SchemaMeta
	err := db.First(&meta, "id = ?", 1).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		meta = SchemaMeta{ID: 1}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case meta.Version > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported %d", meta.Version, SchemaVersion)
	}

	if err := db.AutoMigrate(
		&Apartment{},
		&User{},
		&Booking{},
		&Event{},
	); err != nil {
		return err
	}

	meta.Version = SchemaVersion
	return db.Save(&meta).Error
}
