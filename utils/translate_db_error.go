package utils

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// TranslateDBError maps recognized database failures to messages safe to
// return to the client. It returns "" for errors it does not recognize;
// those must stay behind a generic message.
func TranslateDBError(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique violation
			if strings.Contains(pgErr.Message, "email") {
				return "email already exists"
			}
			return "duplicate value, please use another"
		case "23502":
			return "some required fields are missing"
		case "22P02":
			return "invalid data format"
		}
		return "a database error occurred"
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "record not found"
	}

	lowerErr := strings.ToLower(err.Error())
	if strings.Contains(lowerErr, "context deadline exceeded") {
		return "request timeout"
	}
	if strings.Contains(lowerErr, "context canceled") {
		return "request was cancelled"
	}

	return ""
}
