package db

import (
	"errors"

	"github.com/lib/pq"
)

// PgUniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const PgUniqueViolation = "23505"

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == PgUniqueViolation
}

// PgForeignKeyViolation is raised when a delete would orphan referencing rows.
const PgForeignKeyViolation = "23503"

func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == PgForeignKeyViolation
}
