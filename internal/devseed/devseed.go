// Package devseed provisions allow-list entries and profiles for the
// development identity provider's accounts so that AUTH_MODE=mock is usable
// against an empty database.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/snr-automations/teamdash/config"
	"github.com/snr-automations/teamdash/internal/data"
	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
)

// ProfileStore is the subset of the profile repository used for seeding.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*domainauth.UserProfile, error)
	Upsert(ctx context.Context, p domainauth.UserProfile, opts data.UpsertOptions) error
}

// Services bundles the dependencies needed for development seeding.
type Services struct {
	Profiles ProfileStore
}

// NewServices constructs the seeding dependencies for the provided DB.
func NewServices(db *sql.DB) Services {
	return Services{Profiles: data.NewProfileRepo(db)}
}

// Run seeds every configured dev user. The first user is an Admin and the
// rest are Tech. Users that already have a profile are left untouched.
func Run(ctx context.Context, svcs Services, users []config.DevAuthUser, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	failures := 0
	for i, u := range users {
		role := domainauth.RoleTech
		if i == 0 {
			role = domainauth.RoleAdmin
		}
		created, err := seedUser(ctx, svcs.Profiles, u, role)
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed dev user", "email", u.Email, "error", err)
			failures++
			continue
		}
		msg := "dev user already seeded"
		if created {
			msg = "seeded dev user"
		}
		logger.InfoContext(ctx, msg, "email", u.Email, "role", role)
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func seedUser(ctx context.Context, store ProfileStore, u config.DevAuthUser, role domainauth.Role) (bool, error) {
	id := u.UserID()
	if _, err := store.GetByID(ctx, id); err == nil {
		return false, nil
	} else if !apperrors.IsNotFound(err) {
		return false, err
	}

	p := domainauth.UserProfile{
		ID:    id,
		Email: u.Email,
		Name:  displayName(u.Email),
		Role:  role,
	}
	if err := store.Upsert(ctx, p, data.UpsertOptions{GrantAccess: true}); err != nil {
		return false, err
	}
	return true, nil
}

// displayName turns "jane.doe@x" into "Jane Doe".
func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return email
	}
	return strings.Join(words, " ")
}
