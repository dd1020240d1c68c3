package service

import (
	"context"
	"errors"
	"log/slog"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/observability/metrics"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Gate             *AllowlistGate // Required
	Profiles         *ProfileLoader // Required
	ResetRedirectURL string         // Required: absolute URL of the set-password page
	Logger           *slog.Logger   // Optional
	Metrics          *metrics.Auth  // Optional
}

// AuthService sequences sign-in, sign-out, and reset requests against a client Runtime.
type AuthService struct {
	gate          *AllowlistGate
	profiles      *ProfileLoader
	resetRedirect string
	logger        *slog.Logger
	metrics       *metrics.Auth
}

var errSignInSuperseded = errors.New("sign-in superseded by sign-out")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Gate == nil || opts.Profiles == nil {
		panic("AllowlistGate and ProfileLoader are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		gate:          opts.Gate,
		profiles:      opts.Profiles,
		resetRedirect: opts.ResetRedirectURL,
		logger:        logger.With("component", "auth_service"),
		metrics:       opts.Metrics,
	}
}

// SignIn runs, strictly in order: allow-list gate, provider verification, profile
// load, state publish. The provider never sees credentials for unlisted emails,
// and nothing is published unless every step succeeds.
func (s *AuthService) SignIn(ctx context.Context, rt *Runtime, email, password string) (*domainauth.UserProfile, error) {
	profile, err := s.signIn(ctx, rt, email, password)
	s.metrics.SignIn(err)
	if err != nil {
		s.logger.InfoContext(ctx, "sign-in failed",
			"client_id", rt.ClientID,
			"email_domain", domainauth.EmailDomain(email),
			"code", apperrors.GetCode(err))
		return nil, err
	}
	s.logger.InfoContext(ctx, "signed in",
		"client_id", rt.ClientID,
		"user_id", profile.ID,
		"role", profile.Role)
	return profile, nil
}

func (s *AuthService) signIn(ctx context.Context, rt *Runtime, email, password string) (*domainauth.UserProfile, error) {
	decision, err := s.gate.IsAuthorized(ctx, email)
	if err != nil {
		return nil, err
	}
	if !decision.Authorized {
		return nil, apperrors.NotAuthorized()
	}

	epoch := rt.State.Epoch()
	sess, err := rt.Identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.Load(ctx, sess.User.ID)
	if err != nil {
		// A provider session without a profile is not a valid application user.
		if outErr := rt.Identity.SignOut(context.WithoutCancel(ctx)); outErr != nil {
			s.logger.WarnContext(ctx, "discard profile-less session failed", "error", outErr)
		}
		return nil, err
	}

	if !rt.State.PublishAuthenticated(epoch, *profile) {
		return nil, apperrors.Wrap(errSignInSuperseded, apperrors.ErrCodeCanceled, "Sign-in was canceled by a sign-out.")
	}
	return profile, nil
}

// SignOut moves the client to Unauthenticated before it returns, then ends the
// provider session. A sign-in started after SignOut returns is never canceled by it.
func (s *AuthService) SignOut(ctx context.Context, rt *Runtime) error {
	rt.State.PublishLocalSignOut(rt.Identity.LastEventSeq())
	if err := rt.Identity.SignOut(ctx); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "signed out", "client_id", rt.ClientID)
	return nil
}

// RequestPasswordReset sends a recovery email if email is allow-listed. Unlisted
// emails succeed silently so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, rt *Runtime, email string) error {
	decision, err := s.gate.IsAuthorized(ctx, email)
	if err != nil {
		return err
	}
	if !decision.Authorized {
		s.logger.InfoContext(ctx, "reset requested for unlisted email", "email_domain", domainauth.EmailDomain(email))
		return nil
	}
	if err := rt.Identity.ResetPasswordForEmail(ctx, email, s.resetRedirect); err != nil {
		s.logger.WarnContext(ctx, "reset email request failed", "email_domain", domainauth.EmailDomain(email), "error", err)
		return err
	}
	return nil
}
