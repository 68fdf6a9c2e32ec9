package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Store-level errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")
)

// ConstraintError carries the name of the violated constraint alongside the
// sentinel it wraps.
type ConstraintError struct {
	Kind       error
	Constraint string
	Detail     string
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%v (%s): %s", e.Kind, e.Constraint, e.Detail)
}

func (e *ConstraintError) Unwrap() error { return e.Kind }

// ConvertDBError converts driver errors from either pgx or lib/pq to the
// package sentinels. Unknown errors are returned unchanged.
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromCode(pgErr.Code, pgErr.ConstraintName, pgErr.Detail, pgErr.ColumnName, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fromCode(string(pqErr.Code), pqErr.Constraint, pqErr.Detail, pqErr.Column, err)
	}

	return err
}

func fromCode(code, constraint, detail, column string, orig error) error {
	switch code {
	case pgerrcode.UniqueViolation:
		return &ConstraintError{Kind: ErrUniqueViolation, Constraint: constraint, Detail: detail}
	case pgerrcode.ForeignKeyViolation:
		return &ConstraintError{Kind: ErrForeignKeyViolation, Constraint: constraint, Detail: detail}
	case pgerrcode.CheckViolation:
		return &ConstraintError{Kind: ErrCheckViolation, Constraint: constraint, Detail: detail}
	case pgerrcode.NotNullViolation:
		return &ConstraintError{Kind: ErrNotNullViolation, Constraint: constraint, Detail: "column " + column}
	}
	return orig
}

// ConstraintName returns the violated constraint name, if err carries one.
func ConstraintName(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation returns true if the error is ErrUniqueViolation
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsForeignKeyViolation returns true if the error is ErrForeignKeyViolation
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, ErrForeignKeyViolation)
}
