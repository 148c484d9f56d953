package repository

import (
	"errors"

	"engagement/internal/models"

	"gorm.io/gorm"
)

// notFound converts gorm.ErrRecordNotFound into a NOT_FOUND AppError and
// passes every other error through.
func notFound(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return err
}
