package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique-constraint violation,
// across the dialects we support.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsCheckViolationErr reports whether err is a CHECK-constraint violation
// (for us: the stock >= 0 guard on products).
func IsCheckViolationErr(err error) bool {
	if err == nil {
		return false
	}

	// PostgreSQL (error code 23514)
	if strings.Contains(err.Error(), "violates check constraint") {
		return true
	}

	// SQLite
	if strings.Contains(err.Error(), "CHECK constraint failed") {
		return true
	}

	// MySQL 8 (error code 3819)
	if strings.Contains(err.Error(), "Error 3819") {
		return true
	}

	return false
}
