package httpx

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/service"
)

// TabIDHeader names the browser tab a recovery token is scoped to.
const TabIDHeader = "X-Tab-ID"

// MsgPasswordUpdated is shown while the redirect to sign-in is pending.
const MsgPasswordUpdated = "Password updated successfully! Redirecting..."

// MsgResetRequested never reveals whether the email is allow-listed.
const MsgResetRequested = "If that email is registered, a password reset link is on its way."

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	SignIn(ctx context.Context, rt *service.Runtime, email, password string) (*domainauth.UserProfile, error)
	SignOut(ctx context.Context, rt *service.Runtime) error
	RequestPasswordReset(ctx context.Context, rt *service.Runtime, email string) error
}

// RecoveryServiceInterface defines the interface for the set-password flow.
type RecoveryServiceInterface interface {
	Capture(ctx context.Context, tabID, pageURL string) (service.CaptureResult, error)
	Commit(ctx context.Context, in service.CommitInput) (*service.CommitResult, error)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc       AuthServiceInterface
	Recovery  RecoveryServiceInterface
	Validator *RequestValidator
	Logger    *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) validate(w http.ResponseWriter, req any) bool {
	if h.Validator == nil {
		return true
	}
	if err := h.Validator.Validate(req); err != nil {
		WriteAppError(w, err)
		return false
	}
	return true
}

// runtime returns the client runtime, writing a 500 when ClientRuntime did not run.
func (h *AuthHandlers) runtime(w http.ResponseWriter, r *http.Request) (*service.Runtime, bool) {
	rt, ok := RuntimeFromContext(r.Context())
	if !ok {
		h.logger().ErrorContext(r.Context(), "client runtime missing from request context", "path", r.URL.Path)
		WriteAppError(w, apperrors.Internal("client runtime missing"))
		return nil, false
	}
	return rt, true
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,max=1024"`
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) || !h.validate(w, &req) {
		return
	}
	rt, ok := h.runtime(w, r)
	if !ok {
		return
	}
	// Settle any stored session first so its bootstrap cannot overwrite this sign-in.
	resolveState(r, rt)

	profile, err := h.Svc.SignIn(r.Context(), rt, req.Email, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, domainauth.Authenticated(*profile))
}

// Logout handles POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.runtime(w, r)
	if !ok {
		return
	}
	if err := h.Svc.SignOut(r.Context(), rt); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, domainauth.Unauthenticated())
}

// Status handles GET /auth/status. The first call per client resolves the stored session.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.runtime(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, resolveState(r, rt))
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !DecodeJSON(w, r, &req) || !h.validate(w, &req) {
		return
	}
	rt, ok := h.runtime(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RequestPasswordReset(r.Context(), rt, req.Email); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "sent", "message": MsgResetRequested})
}

type captureRequest struct {
	URL string `json:"url" validate:"required,max=8192"`
}

type captureResponse struct {
	Status          service.CaptureStatus `json:"status"`
	ReplaceURL      string                `json:"replace_url,omitempty"`
	AlreadyCaptured bool                  `json:"already_captured,omitempty"`
	Error           string                `json:"error,omitempty"`
	Message         string                `json:"message,omitempty"`
}

// CaptureRecovery handles POST /auth/recovery/capture. The page posts its full URL,
// fragment included, on load; the response says which form to show.
func (h *AuthHandlers) CaptureRecovery(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !DecodeJSON(w, r, &req) || !h.validate(w, &req) {
		return
	}
	res, err := h.Recovery.Capture(r.Context(), r.Header.Get(TabIDHeader), req.URL)
	if err != nil && res.Status != service.CaptureInvalid {
		WriteAppError(w, err)
		return
	}
	if res.Status == service.CaptureInvalid {
		WriteJSON(w, http.StatusBadRequest, captureResponse{
			Status:  service.CaptureInvalid,
			Error:   string(apperrors.ErrCodeInvalidRecoveryLink),
			Message: apperrors.UserMessage(err),
		})
		return
	}
	WriteJSON(w, http.StatusOK, captureResponse{
		Status:          res.Status,
		ReplaceURL:      res.ReplaceURL,
		AlreadyCaptured: res.AlreadyCaptured,
	})
}

// Length and match rules live in RecoveryService so their order is fixed in one place.
type setPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type setPasswordResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	RedirectTo      string `json:"redirect_to"`
	RedirectAfterMS int64  `json:"redirect_after_ms"`
}

// SetPassword handles POST /auth/set-password.
func (h *AuthHandlers) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	rt, ok := h.runtime(w, r)
	if !ok {
		return
	}
	res, err := h.Recovery.Commit(r.Context(), service.CommitInput{
		TabID:           r.Header.Get(TabIDHeader),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Identity:        rt.Identity,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	secs := int(math.Ceil(res.RedirectAfter.Seconds()))
	w.Header().Set("Refresh", strconv.Itoa(secs)+"; url="+res.RedirectTo)
	WriteJSON(w, http.StatusOK, setPasswordResponse{
		Status:          "updated",
		Message:         MsgPasswordUpdated,
		RedirectTo:      res.RedirectTo,
		RedirectAfterMS: res.RedirectAfter.Milliseconds(),
	})
}

// Me handles GET /api/me behind RequireAuth.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := ProfileFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errAuthenticationRequired,
		})
		return
	}
	WriteJSON(w, http.StatusOK, p)
}
