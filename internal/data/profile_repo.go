package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/snr-automations/teamdash/internal/data/pgxutil"
	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
)

// ProfileRepo provides database operations for user_profiles.
type ProfileRepo struct {
	DB *sql.DB
}

// NewProfileRepo creates a new profile repository.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db}
}

const profileColumns = `id::text AS id, email, name, role, contact, skillset, current_tasks`

type profileRow struct {
	ID           string               `db:"id"`
	Email        string               `db:"email"`
	Name         string               `db:"name"`
	Role         string               `db:"role"`
	Contact      *string              `db:"contact"`
	Skillset     []string             `db:"skillset"`
	CurrentTasks []domainauth.TaskRef `db:"current_tasks"`
}

func (r profileRow) toDomain() (*domainauth.UserProfile, error) {
	role, err := domainauth.ParseRole(r.Role)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", r.ID, err)
	}
	p := &domainauth.UserProfile{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Role:         role,
		Skillset:     r.Skillset,
		CurrentTasks: r.CurrentTasks,
	}
	if r.Contact != nil {
		p.Contact = *r.Contact
	}
	p.Normalize()
	return p, nil
}

// GetByID retrieves the profile keyed by the provider user id.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*domainauth.UserProfile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("profile %q not found", id)
	}

	var row profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row.toDomain()
}

// List returns every profile ordered by name.
func (r *ProfileRepo) List(ctx context.Context) ([]domainauth.UserProfile, error) {
	var rows []profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx, `SELECT `+profileColumns+` FROM user_profiles ORDER BY name, email`)
		if err != nil {
			return err
		}
		rows, err = pgx.CollectRows(res, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	out := make([]domainauth.UserProfile, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// UpsertOptions controls Upsert.
type UpsertOptions struct {
	// GrantAccess also activates the profile's email in authorized_users, in the same transaction.
	GrantAccess bool
}

// Upsert inserts or replaces a profile by id.
func (r *ProfileRepo) Upsert(ctx context.Context, p domainauth.UserProfile, opts UpsertOptions) error {
	if err := validateProfile(&p); err != nil {
		return err
	}
	p.Normalize()

	var contact *string
	if c := strings.TrimSpace(p.Contact); c != "" {
		contact = &c
	}

	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		if opts.GrantAccess {
			if err := upsertAllowlistTx(ctx, tx, p.Email); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO user_profiles (id, email, name, role, contact, skillset, current_tasks)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				name = EXCLUDED.name,
				role = EXCLUDED.role,
				contact = EXCLUDED.contact,
				skillset = EXCLUDED.skillset,
				current_tasks = EXCLUDED.current_tasks,
				updated_at = now()`,
			p.ID, p.Email, p.Name, string(p.Role), contact, p.Skillset, p.CurrentTasks)
		return err
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

func validateProfile(p *domainauth.UserProfile) error {
	if _, err := uuid.Parse(p.ID); err != nil {
		return apperrors.ValidationField("id", "id must be the identity provider's user UUID")
	}
	if strings.TrimSpace(p.Email) == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.ValidationField("name", "name is required")
	}
	if !p.Role.Valid() {
		return apperrors.ValidationField("role", fmt.Sprintf("unknown role %q", p.Role))
	}
	return nil
}
