package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"philosofium/backend/assessment"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err comes from a unique constraint on any
// supported dialect.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite reports constraint failures as plain text
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps gorm/driver errors onto the assessment error categories.
func translate(err error, entity string, id uint) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return assessment.NotFound(entity, id)
	case IsUniqueViolation(err):
		return assessment.ErrConflict
	}
	return err
}
