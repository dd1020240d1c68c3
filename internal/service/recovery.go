package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/observability/metrics"
	"github.com/snr-automations/teamdash/internal/ports"
)

// Recovery defaults.
const (
	DefaultMinPasswordLength = 6
	DefaultRecoveryTokenTTL  = time.Hour
	DefaultRedirectDelay     = 2 * time.Second
	DefaultSignInPath        = "/login"
)

// CaptureStatus is the outcome of loading the set-password page.
type CaptureStatus string

const (
	// CaptureReady means a recovery token is held for the tab; show the password form.
	CaptureReady CaptureStatus = "ready"
	// CaptureInvalid means the link carried no usable token; offer a new reset email.
	CaptureInvalid CaptureStatus = "invalid"
)

// CaptureResult tells the page what to show and, when set, which URL to swap in
// with history.replaceState.
type CaptureResult struct {
	Status          CaptureStatus
	ReplaceURL      string
	AlreadyCaptured bool
}

// CommitResult schedules the post-commit redirect.
type CommitResult struct {
	RedirectTo    string
	RedirectAfter time.Duration
}

// PasswordUpdater performs a token-scoped password change. *IdentityClient implements it.
type PasswordUpdater interface {
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}

// CommitInput groups parameters for Commit.
type CommitInput struct {
	TabID           string
	Password        string
	ConfirmPassword string
	Identity        PasswordUpdater
}

// RecoveryServiceOptions groups dependencies for RecoveryService.
type RecoveryServiceOptions struct {
	Store             ports.RecoveryTokenStore // Required
	MinPasswordLength int                      // Optional: default 6
	TokenTTL          time.Duration            // Optional: default 1h
	SignInPath        string                   // Optional: default /login
	RedirectDelay     time.Duration            // Optional: default 2s
	Logger            *slog.Logger             // Optional
	Metrics           *metrics.Auth            // Optional
}

// RecoveryService captures recovery tokens from emailed links and exchanges them
// for a new password. Only Capture writes the tab's token and only Commit deletes it.
type RecoveryService struct {
	store      ports.RecoveryTokenStore
	minLen     int
	ttl        time.Duration
	signInPath string
	delay      time.Duration
	logger     *slog.Logger
	metrics    *metrics.Auth
}

// NewRecoveryService creates a new RecoveryService.
func NewRecoveryService(opts RecoveryServiceOptions) *RecoveryService {
	if opts.Store == nil {
		panic("RecoveryTokenStore is required")
	}
	s := &RecoveryService{
		store:      opts.Store,
		minLen:     opts.MinPasswordLength,
		ttl:        opts.TokenTTL,
		signInPath: opts.SignInPath,
		delay:      opts.RedirectDelay,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if s.minLen <= 0 {
		s.minLen = DefaultMinPasswordLength
	}
	if s.ttl <= 0 {
		s.ttl = DefaultRecoveryTokenTTL
	}
	if s.signInPath == "" {
		s.signInPath = DefaultSignInPath
	}
	if s.delay <= 0 {
		s.delay = DefaultRedirectDelay
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "recovery")
	return s
}

// Capture handles a set-password page load for tabID at pageURL (fragment included).
//
// A token already held for the tab wins and the URL is not parsed. Otherwise the
// fragment must carry type=recovery and a non-empty access_token; the token is
// stored before a scrubbed URL is returned, so a storage failure never loses it.
func (s *RecoveryService) Capture(ctx context.Context, tabID, pageURL string) (CaptureResult, error) {
	if err := validateTabID(tabID); err != nil {
		return CaptureResult{}, err
	}

	_, held, err := s.store.Get(ctx, tabID)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("check recovery token: %w", err)
	}
	if held {
		s.metrics.RecoveryCapture("already_captured")
		return CaptureResult{Status: CaptureReady, ReplaceURL: scrubFragment(pageURL), AlreadyCaptured: true}, nil
	}

	token, ok := parseRecoveryFragment(pageURL)
	if !ok {
		s.metrics.RecoveryCapture(string(CaptureInvalid))
		return CaptureResult{Status: CaptureInvalid}, apperrors.InvalidRecoveryLink()
	}

	stored, err := s.store.Put(ctx, tabID, token, s.ttl)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("store recovery token: %w", err)
	}
	if !stored {
		s.logger.InfoContext(ctx, "recovery token already captured by a concurrent load", "tab_id", tabID)
	}
	s.metrics.RecoveryCapture(string(CaptureReady))
	return CaptureResult{Status: CaptureReady, ReplaceURL: scrubFragment(pageURL), AlreadyCaptured: !stored}, nil
}

// Commit validates the new password locally, then exchanges the tab's recovery
// token for it. The token is removed before the provider call, so it is gone
// whatever the outcome.
func (s *RecoveryService) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	res, err := s.commit(ctx, in)
	s.metrics.PasswordCommit(err)
	return res, err
}

func (s *RecoveryService) commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	if utf8.RuneCountInString(in.Password) < s.minLen {
		return nil, apperrors.PasswordTooShort(s.minLen)
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperrors.PasswordMismatch()
	}
	if err := validateTabID(in.TabID); err != nil {
		return nil, err
	}
	if in.Identity == nil {
		return nil, apperrors.Internal("password updater is required")
	}

	// Taking the token removes it, so a concurrent commit for the same tab
	// finds nothing and the token reaches the provider at most once.
	token, ok, err := s.store.Take(ctx, in.TabID)
	if err != nil {
		return nil, fmt.Errorf("take recovery token: %w", err)
	}
	if !ok {
		return nil, apperrors.SessionExpired()
	}

	if updateErr := in.Identity.UpdatePassword(ctx, token, in.Password); updateErr != nil {
		s.logger.InfoContext(ctx, "password update rejected", "tab_id", in.TabID, "code", apperrors.GetCode(updateErr))
		return nil, updateErr
	}

	s.logger.InfoContext(ctx, "password updated", "tab_id", in.TabID)
	return &CommitResult{RedirectTo: s.signInPath, RedirectAfter: s.delay}, nil
}

// parseRecoveryFragment reads access_token and type from the URL fragment.
// Other keys, including refresh_token, are ignored.
func parseRecoveryFragment(pageURL string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Fragment == "" {
		return "", false
	}
	values, err := url.ParseQuery(u.EscapedFragment())
	if err != nil {
		return "", false
	}
	token := values.Get("access_token")
	if values.Get("type") != "recovery" || token == "" {
		return "", false
	}
	return token, true
}

// scrubFragment returns pageURL without its fragment, or "" when there is nothing to strip.
func scrubFragment(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Fragment == "" && u.RawFragment == "") {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func validateTabID(tabID string) error {
	if _, err := uuid.Parse(tabID); err != nil {
		return apperrors.ValidationField("tab_id", "a tab id is required")
	}
	return nil
}
