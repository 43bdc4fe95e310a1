package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation on
// Postgres or sqlite. When names are given, one of them must match the
// Postgres constraint or, on sqlite, appear in the "table.column" list.
func IsUniqueViolation(err error, names ...string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return matchesAny(names, func(name string) bool { return pgErr.ConstraintName == name })
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return matchesAny(names, func(name string) bool { return strings.Contains(msg, name) })
}

func matchesAny(names []string, match func(string) bool) bool {
	checked := false
	for _, name := range names {
		if name == "" {
			continue
		}
		checked = true
		if match(name) {
			return true
		}
	}
	return !checked
}

// IsNotFound reports whether err is gorm's missing-record sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
