package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/snr-automations/teamdash/internal/data/pgxutil"
	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
)

// AllowlistRepo provides database operations for authorized_users.
type AllowlistRepo struct {
	DB *sql.DB
}

// NewAllowlistRepo creates a new allow-list repository.
func NewAllowlistRepo(db *sql.DB) *AllowlistRepo {
	return &AllowlistRepo{DB: db}
}

const allowlistColumns = `email, is_active, created_at, updated_at`

// FindByEmail performs an exact, case-sensitive lookup. A missing row maps to ErrCodeNotFound.
func (r *AllowlistRepo) FindByEmail(ctx context.Context, email string) (*domainauth.AllowListEntry, error) {
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}

	var entry domainauth.AllowListEntry
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+allowlistColumns+` FROM authorized_users WHERE email = $1`, email)
		if err != nil {
			return err
		}
		entry, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.AllowListEntry])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &entry, nil
}

// Add inserts a new active entry. An existing email is a conflict.
func (r *AllowlistRepo) Add(ctx context.Context, email string) (*domainauth.AllowListEntry, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.ValidationField("email", "a valid email is required")
	}

	var entry domainauth.AllowListEntry
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`INSERT INTO authorized_users (email, is_active) VALUES ($1, TRUE) RETURNING `+allowlistColumns, email)
		if err != nil {
			return err
		}
		entry, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.AllowListEntry])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &entry, nil
}

// SetActive toggles is_active for an existing entry.
func (r *AllowlistRepo) SetActive(ctx context.Context, email string, active bool) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE authorized_users SET is_active = $2, updated_at = now() WHERE email = $1`, email, active)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// List returns all entries ordered by email.
func (r *AllowlistRepo) List(ctx context.Context) ([]domainauth.AllowListEntry, error) {
	var out []domainauth.AllowListEntry
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+allowlistColumns+` FROM authorized_users ORDER BY email`)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.AllowListEntry])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list authorized users: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

func upsertAllowlistTx(ctx context.Context, tx pgx.Tx, email string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO authorized_users (email, is_active) VALUES ($1, TRUE)
		ON CONFLICT (email) DO UPDATE SET is_active = TRUE, updated_at = now()`, email)
	if err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	return nil
}
