package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts field name from unique violation detail: "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances.
// It handles common database error patterns including:
// - pgx.ErrNoRows → NotFound
// - Unique constraint violations → Conflict
// - Foreign key violations → ForeignKey
// - Check and NOT NULL violations → Validation
// - Context timeouts/cancellations → Timeout/Canceled
//
// If the error is not a recognized database error, it returns the original error.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newErr(ErrCodeTimeout, "Request timed out. Please try again.", err)
	}
	if errors.Is(err, context.Canceled) {
		return newErr(ErrCodeCanceled, "Request was canceled.", err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return newErr(ErrCodeNotFound, "Resource not found", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		e := newErr(ErrCodeConflict, tableLabel(pgErr.TableName)+" already exists.", pgErr)
		e.Field = uniqueField(pgErr)
		return e
	case pgerrcode.ForeignKeyViolation:
		return newErr(ErrCodeForeignKey, "Cannot complete operation because a referenced "+
			strings.ToLower(tableLabel(pgErr.TableName))+" does not exist.", pgErr)
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		e := newErr(ErrCodeValidation, "Invalid data. Please check your input.", pgErr)
		if pgErr.ColumnName != "" {
			e.Message = "This field has an invalid value."
			e.Field = pgErr.ColumnName
		}
		return e
	default:
		return newErr(ErrCodeInternal, "A database error occurred. Please try again.", pgErr)
	}
}

// uniqueField prefers ColumnName metadata, then the Detail text.
func uniqueField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return ""
}

// tableLabel maps table names to user-friendly labels.
func tableLabel(table string) string {
	switch strings.ToLower(strings.TrimSpace(table)) {
	case "authorized_users":
		return "Authorized user"
	case "user_profiles":
		return "Profile"
	default:
		return "Record"
	}
}
