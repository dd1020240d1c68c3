package gotrue

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/snr-automations/teamdash/internal/errors"
)

type opKind int

const (
	opSignIn  opKind = iota // credential checks: classify into the sign-in taxonomy
	opSession               // token-scoped calls: 401/403 means the session is gone
	opUpdate                // user-visible writes: surface the provider message verbatim
)

// APIError is a decoded GoTrue error body. Older deployments send
// error/error_description, newer ones send error_code/msg.
type APIError struct {
	Status      int    `json:"-"`
	Code        string `json:"error_code"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
	Err         string `json:"error"`
	Description string `json:"error_description"`
}

// Text returns the most specific human-readable message in the body.
func (e *APIError) Text() string {
	for _, s := range []string{e.Msg, e.Description, e.Message, e.Err} {
		if s != "" {
			return s
		}
	}
	return http.StatusText(e.Status)
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gotrue status %d: %s", e.Status, e.Text())
}

func parseAPIError(status int, raw []byte) *APIError {
	e := &APIError{Status: status}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, e)
	}
	if e.Code == "" && e.Err != "" && e.Description != "" {
		e.Code = e.Err
	}
	return e
}

func classify(status int, apiErr *APIError, kind opKind) error {
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return apperrors.ProviderUnavailable(apiErr)
	}

	text := strings.ToLower(apiErr.Text())
	switch kind {
	case opSignIn:
		switch {
		case apiErr.Code == "email_not_confirmed" || strings.Contains(text, "email not confirmed"):
			return apperrors.EmailUnconfirmed(apiErr)
		case apiErr.Code == "invalid_credentials" || apiErr.Code == "invalid_grant" ||
			strings.Contains(text, "invalid login credentials"):
			return apperrors.InvalidCredentials(apiErr)
		}
	case opSession:
		if status == http.StatusUnauthorized || status == http.StatusForbidden || apiErr.Code == "invalid_grant" {
			return apperrors.InvalidCredentials(apiErr)
		}
	case opUpdate:
		// provider text is shown to the user as-is
	}
	return apperrors.Unknown(apiErr.Text(), apiErr)
}
