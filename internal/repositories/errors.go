package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq" // For pq.Error
)

var (
	// ErrNotFound is returned when a specific record is not found.
	ErrNotFound = errors.New("requested record not found")

	// ErrDatabaseError is returned for unexpected database errors.
	// It can be used to wrap more specific driver errors.
	ErrDatabaseError = errors.New("database error")

	// ErrDuplicateKey is returned when an insert/update violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

	// ErrCheckViolation is returned when a write would break a CHECK constraint
	// or a guarded update matched no row.
	ErrCheckViolation = errors.New("check constraint violated")

	// ErrForeignKey is returned when a referenced row does not exist.
	ErrForeignKey = errors.New("referenced record does not exist")
)

// SQLExecutor defines an interface that can be satisfied by *sql.DB or *sql.Tx
// This allows repository methods to be used within transactions or with a direct DB connection.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// scanner is an interface satisfied by *sql.Row and *sql.Rows.
// This allows for generic scanning helpers.
type scanner interface {
	Scan(dest ...interface{}) error
}

// classify maps driver errors to the package sentinels.
func classify(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
		case "check_violation":
			return fmt.Errorf("%w: %s (constraint: %s)", ErrCheckViolation, pqErr.Message, pqErr.Constraint)
		case "foreign_key_violation":
			return fmt.Errorf("%w: %s (constraint: %s)", ErrForeignKey, pqErr.Message, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabaseError, op, err)
}

// expectOneRow turns a zero-row update into notFound.
func expectOneRow(res sql.Result, op string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s: rows affected: %v", ErrDatabaseError, op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// paginate appends LIMIT/OFFSET placeholders starting at argCount.
func paginate(query string, args []interface{}, argCount, page, pageSize int) (string, []interface{}) {
	if pageSize <= 0 {
		return query, args
	}
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, pageSize)
	if page > 1 {
		query += fmt.Sprintf(" OFFSET $%d", argCount+1)
		args = append(args, (page-1)*pageSize)
	}
	return query, args
}
