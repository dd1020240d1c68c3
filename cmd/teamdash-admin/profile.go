package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/snr-automations/teamdash/internal/data"
	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
)

type profileStore interface {
	Upsert(ctx context.Context, p domainauth.UserProfile, opts data.UpsertOptions) error
}

type profileOptions struct {
	Profile     domainauth.UserProfile
	GrantAccess bool
}

var errProfileUsage = errors.New("usage: teamdash-admin profile upsert -id <uuid> -email <email> -name <name> -role <role> [-contact c] [-skills a,b] [-grant-access]")

func parseProfileFlags(args []string) (profileOptions, error) {
	var (
		opts            profileOptions
		role, skills    string
		id, email, name string
	)
	fs := flag.NewFlagSet("profile upsert", flag.ContinueOnError)
	fs.StringVar(&id, "id", "", "identity provider user id (UUID)")
	fs.StringVar(&email, "email", "", "email address")
	fs.StringVar(&name, "name", "", "display name")
	fs.StringVar(&role, "role", "", "role: "+roleList())
	fs.StringVar(&opts.Profile.Contact, "contact", "", "contact details")
	fs.StringVar(&skills, "skills", "", "comma-separated skillset")
	fs.BoolVar(&opts.GrantAccess, "grant-access", false, "also add the email to the allow-list")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	r, err := domainauth.ParseRole(role)
	if err != nil {
		return opts, fmt.Errorf("%w (valid roles: %s)", err, roleList())
	}
	opts.Profile.ID = strings.TrimSpace(id)
	opts.Profile.Email = strings.TrimSpace(email)
	opts.Profile.Name = strings.TrimSpace(name)
	opts.Profile.Role = r
	for _, s := range strings.Split(skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			opts.Profile.Skillset = append(opts.Profile.Skillset, s)
		}
	}
	return opts, nil
}

func roleList() string {
	roles := domainauth.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func runProfile(cmdCtx *commandContext, args []string) error {
	if len(args) == 0 || args[0] != "upsert" {
		return errProfileUsage
	}
	opts, err := parseProfileFlags(args[1:])
	if err != nil {
		return err
	}

	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 30*time.Second)
	defer cancel()
	return upsertProfile(ctx, data.NewProfileRepo(db), cmdCtx.Out, opts)
}

func upsertProfile(ctx context.Context, store profileStore, out io.Writer, opts profileOptions) error {
	if err := store.Upsert(ctx, opts.Profile, data.UpsertOptions{GrantAccess: opts.GrantAccess}); err != nil {
		return fmt.Errorf("upsert profile %s: %w", opts.Profile.ID, err)
	}
	_, err := fmt.Fprintf(out, "saved profile %s (%s, %s)\n", opts.Profile.ID, opts.Profile.Email, opts.Profile.Role)
	return err
}
