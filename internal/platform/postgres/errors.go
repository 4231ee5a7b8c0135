package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/accounts-api/internal/store"
)

// SQLSTATE codes MapError recognizes.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// Unique constraint names declared in the migrations. They let MapError
// tell a duplicate username from a duplicate email.
const (
	constraintAccountsUsername = "accounts_username_key"
	constraintAccountsEmail    = "accounts_email_key"
	constraintInvitePair       = "friend_invites_from_to_key"
)

// uniqueConstraintErrors maps known unique constraints onto store sentinels.
var uniqueConstraintErrors = map[string]error{
	constraintAccountsUsername: store.ErrUsernameExists,
	constraintAccountsEmail:    store.ErrEmailExists,
	constraintInvitePair:       store.ErrInviteExists,
}

// constraintViolations names the non-unique violations reported as
// store.ErrInvalidEntity.
var constraintViolations = map[string]string{
	foreignKeyViolationCode: "foreign key violation",
	checkViolationCode:      "check constraint violation",
	notNullViolationCode:    "not null violation",
}

// MapError translates driver errors into store sentinels, keeping the
// original error text for logs. Unrecognized errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	if pgErr.Code == uniqueViolationCode {
		sentinel, ok := uniqueConstraintErrors[pgErr.ConstraintName]
		if !ok {
			sentinel = store.ErrDuplicate
		}
		return fmt.Errorf("%w: %v", sentinel, err)
	}

	if kind, ok := constraintViolations[pgErr.Code]; ok {
		detail := pgErr.ConstraintName
		if detail == "" {
			detail = pgErr.ColumnName
		}
		return fmt.Errorf("%w: %s (%s): %v", store.ErrInvalidEntity, kind, detail, err)
	}
	return err
}

// IsUniqueViolation reports whether err carries a unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation reports whether err carries a foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// CheckRowsAffected returns notFound, or store.ErrNotFound when notFound is
// nil, if an UPDATE or DELETE matched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("no sql result to check")
	}
	n, err := result.RowsAffected()
	switch {
	case err != nil:
		return fmt.Errorf("failed to get rows affected: %w", err)
	case n > 0:
		return nil
	case notFound != nil:
		return notFound
	default:
		return store.ErrNotFound
	}
}
