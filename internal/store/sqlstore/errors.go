// internal/store/sqlstore/errors.go
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"libraloan/internal/apperrors"
)

// PostgreSQL SQLSTATE codes.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
)

// MySQL server error numbers.
const (
	myDuplicateEntry  = 1062
	myRowIsReferenced = 1451
	myNoReferencedRow = 1452
	myCheckViolation  = 3819
)

// classify translates driver errors into the application taxonomy and wraps
// everything else with the failed action.
func classify(err error, action string) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqCheckViolation:
			return checkViolation(pqErr.Constraint, err)
		case pqUniqueViolation:
			return apperrors.Constraint(apperrors.Duplicate, "failed to "+action, err)
		case pqForeignKeyViolation:
			return apperrors.Constraint(apperrors.InUse, "failed to "+action, err)
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case myCheckViolation:
			return checkViolation(myErr.Message, err)
		case myDuplicateEntry:
			return apperrors.Constraint(apperrors.Duplicate, "failed to "+action, err)
		case myRowIsReferenced, myNoReferencedRow:
			return apperrors.Constraint(apperrors.InUse, "failed to "+action, err)
		}
	}

	return fmt.Errorf("failed to %s: %w", action, err)
}

// checkViolation maps a violated CHECK constraint by name. MySQL only
// reports the name inside the message.
func checkViolation(constraint string, err error) error {
	switch {
	case strings.Contains(constraint, "available_copies"):
		return apperrors.Constraint(apperrors.NegativeCopyCount, "available copies cannot be negative", err)
	case strings.Contains(constraint, "date_range"):
		return apperrors.Validation(apperrors.InvalidDateRange, "expected return date cannot be before loan date")
	default:
		return apperrors.Validation(apperrors.InvalidInput, "value rejected by a database constraint")
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// requireAffected turns a zero row count into notFound.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
