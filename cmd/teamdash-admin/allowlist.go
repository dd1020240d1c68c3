package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/snr-automations/teamdash/internal/data"
	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
)

const allowlistTimeout = 30 * time.Second

type allowlistStore interface {
	Add(ctx context.Context, email string) (*domainauth.AllowListEntry, error)
	SetActive(ctx context.Context, email string, active bool) error
	List(ctx context.Context) ([]domainauth.AllowListEntry, error)
}

var errAllowlistUsage = errors.New("usage: teamdash-admin allowlist add|activate|deactivate <email>... | list")

func runAllowlist(cmdCtx *commandContext, args []string) error {
	if len(args) == 0 {
		return errAllowlistUsage
	}

	db, closeDB, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, allowlistTimeout)
	defer cancel()
	return allowlistCommand(ctx, data.NewAllowlistRepo(db), cmdCtx.Out, args)
}

// allowlistCommand runs one allowlist subcommand against store. Emails are stored
// exactly as typed, since sign-in lookups are exact.
func allowlistCommand(ctx context.Context, store allowlistStore, out io.Writer, args []string) error {
	sub, emails := args[0], args[1:]
	switch sub {
	case "list":
		entries, err := store.List(ctx)
		if err != nil {
			return err
		}
		return printAllowlist(out, entries)

	case "add":
		if len(emails) == 0 {
			return errAllowlistUsage
		}
		for _, email := range emails {
			entry, err := store.Add(ctx, email)
			if apperrors.IsConflict(err) {
				if _, werr := fmt.Fprintf(out, "%s already listed\n", email); werr != nil {
					return werr
				}
				continue
			}
			if err != nil {
				return fmt.Errorf("add %s: %w", email, err)
			}
			if _, err := fmt.Fprintf(out, "added %s\n", entry.Email); err != nil {
				return err
			}
		}
		return nil

	case "activate", "deactivate":
		if len(emails) == 0 {
			return errAllowlistUsage
		}
		active := sub == "activate"
		for _, email := range emails {
			if err := store.SetActive(ctx, email, active); err != nil {
				if apperrors.IsNotFound(err) {
					return fmt.Errorf("%s is not in the allow-list", email)
				}
				return fmt.Errorf("%s %s: %w", sub, email, err)
			}
			if _, err := fmt.Fprintf(out, "%sd %s\n", sub, email); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown allowlist subcommand %q: %w", sub, errAllowlistUsage)
	}
}

func printAllowlist(w io.Writer, entries []domainauth.AllowListEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "(no authorized users)")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "EMAIL\tACTIVE\tUPDATED"); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(tw, "%s\t%t\t%s\n", e.Email, e.Active, e.UpdatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}
