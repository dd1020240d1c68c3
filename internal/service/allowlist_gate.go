package service

import (
	"context"
	"log/slog"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/observability/metrics"
	"github.com/snr-automations/teamdash/internal/ports"
)

// DefaultAllowlistTimeout bounds a single allow-list lookup.
const DefaultAllowlistTimeout = 5 * time.Second

// AllowlistGateOptions groups dependencies for AllowlistGate.
type AllowlistGateOptions struct {
	Repo    ports.AllowlistRepository // Required
	Timeout time.Duration             // Optional: defaults to DefaultAllowlistTimeout
	Logger  *slog.Logger              // Optional
	Metrics *metrics.Auth             // Optional
}

// AllowlistDecision is the gate's verdict for one email.
type AllowlistDecision struct {
	Authorized bool
}

// AllowlistGate decides whether an email may attempt sign-in at all.
// It fails closed: timeouts and lookup errors always yield Authorized=false.
type AllowlistGate struct {
	repo    ports.AllowlistRepository
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Auth
}

// NewAllowlistGate creates a new AllowlistGate.
func NewAllowlistGate(opts AllowlistGateOptions) *AllowlistGate {
	if opts.Repo == nil {
		panic("AllowlistRepository is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultAllowlistTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AllowlistGate{
		repo:    opts.Repo,
		timeout: timeout,
		logger:  logger.With("component", "allowlist_gate"),
		metrics: opts.Metrics,
	}
}

type lookupResult struct {
	entry *domainauth.AllowListEntry
	err   error
}

// IsAuthorized looks up email exactly as given. A missing or inactive row returns
// {false}, nil. Infrastructure failures return {false} and an allowlist_unavailable error.
func (g *AllowlistGate) IsAuthorized(ctx context.Context, email string) (AllowlistDecision, error) {
	if email == "" {
		return AllowlistDecision{}, nil
	}

	start := time.Now()
	lookupCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// The repository may not honor cancellation promptly; the select enforces the bound regardless.
	done := make(chan lookupResult, 1)
	go func() {
		entry, err := g.repo.FindByEmail(lookupCtx, email)
		done <- lookupResult{entry: entry, err: err}
	}()

	var res lookupResult
	select {
	case res = <-done:
	case <-lookupCtx.Done():
		res = lookupResult{err: lookupCtx.Err()}
	}
	elapsed := time.Since(start).Seconds()

	switch {
	case res.err == nil && res.entry != nil && res.entry.Active:
		g.metrics.GateDecision("authorized", elapsed)
		return AllowlistDecision{Authorized: true}, nil
	case res.err == nil || apperrors.IsNotFound(res.err):
		g.metrics.GateDecision(metrics.ResultDenied, elapsed)
		g.logger.InfoContext(ctx, "email not authorized",
			"email_domain", domainauth.EmailDomain(email),
			"listed", res.entry != nil)
		return AllowlistDecision{}, nil
	default:
		g.metrics.GateDecision(metrics.ResultError, elapsed)
		g.logger.WarnContext(ctx, "allow-list lookup failed; denying",
			"email_domain", domainauth.EmailDomain(email),
			"error", res.err)
		return AllowlistDecision{}, apperrors.AllowlistUnavailable(res.err)
	}
}
