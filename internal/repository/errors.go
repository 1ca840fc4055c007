package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("repository: not found")
	// ErrVersionConflict: запись изменили между чтением и записью.
	ErrVersionConflict = errors.New("repository: version conflict")
)

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
