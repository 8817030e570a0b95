package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrHolderNotFound    = errors.New("holder not found")
	ErrProgramNotFound   = errors.New("program not found")
	ErrClassNotFound     = errors.New("class not found")
	ErrAllowanceNotFound = errors.New("allowance not found")
	ErrSessionNotFound   = errors.New("attendance session not found")
	ErrDuplicateSession  = errors.New("attendance session already exists for class and date")
	ErrDuplicateRecord   = errors.New("attendance already recorded for this session")
)

// isUniqueViolation reports whether err is a unique-constraint failure.
// GORM's translated error covers postgres; the string checks cover the
// sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
