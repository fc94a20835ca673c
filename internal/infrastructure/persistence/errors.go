package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/storefront/stores/internal/domain/shared"
	"gorm.io/gorm"
)

// isUniqueViolation reports whether err comes from a unique-constraint
// violation (Postgres SQLSTATE 23505). GORM translates these to
// ErrDuplicatedKey when TranslateError is enabled; the string check
// covers drivers that bypass the translation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") || strings.Contains(msg, "duplicate key value")
}

// isTransient reports whether err indicates infrastructure pressure or a
// connectivity problem that the caller may retry, as opposed to an
// integrity failure.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, needle := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"failed to connect",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// translateDBError maps storage errors onto the domain error taxonomy.
// Integrity failures and connectivity failures are kept distinct so the
// service layer can decide retryability.
func translateDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case isUniqueViolation(err):
		return shared.ErrAlreadyExists
	case isTransient(err):
		return shared.ErrUnavailable
	default:
		return err
	}
}
