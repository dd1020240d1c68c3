package auth

// Package auth contains domain-level types for authentication, profiles, and
// the client-visible auth state. It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
	"time"
)

// Role represents a team member's organizational role.
// Keep string form for easy persistence in user_profiles.role.
type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleCOO            Role = "COO"
	RoleCTO            Role = "CTO"
	RoleProjectManager Role = "ProjectManager"
	RoleTech           Role = "Tech"
	RoleDesign         Role = "Design"
	RoleAI             Role = "AI"
	RoleCloud          Role = "Cloud"
	RoleResearch       Role = "Research"
	RoleContent        Role = "Content"
	RoleIntern         Role = "Intern"
)

var allRoles = []Role{
	RoleAdmin, RoleCOO, RoleCTO, RoleProjectManager, RoleTech, RoleDesign,
	RoleAI, RoleCloud, RoleResearch, RoleContent, RoleIntern,
}

// Roles returns every known role in display order.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole maps a stored role name onto a Role. Matching ignores case and
// surrounding whitespace so "project manager" style drift in the table is rejected
// rather than silently accepted.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, known := range allRoles {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsLeadership reports whether the role belongs to the leadership tier.
func (r Role) IsLeadership() bool {
	return r == RoleAdmin || r == RoleCOO || r == RoleCTO
}

// Credential is a transient email/password pair. It is never persisted or logged.
type Credential struct {
	Email    string
	Password string
}

// String redacts the password so a stray %v never leaks it.
func (c Credential) String() string {
	return fmt.Sprintf("Credential{Email:%s Password:[redacted]}", c.Email)
}

// AllowListEntry is a row of the authorized_users table.
type AllowListEntry struct {
	Email     string    `db:"email"      json:"email"`
	Active    bool      `db:"is_active"  json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Identity represents the authenticated principal returned by the identity provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ProviderSession is the session issued by the identity provider. Only the
// identity client owns it; callers may inspect presence and the resolved identity.
type ProviderSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// Expired reports whether the access token has expired at now.
func (s ProviderSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TaskRef is an entry of a profile's current task list.
type TaskRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
}

// UserProfile is the application-level record keyed 1:1 with the provider user id.
type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Contact      string    `json:"contact,omitempty"`
	Skillset     []string  `json:"skillset"`
	CurrentTasks []TaskRef `json:"current_tasks"`
}

// Normalize replaces nil collections with empty ones so JSON renders [] instead of null.
func (p *UserProfile) Normalize() {
	if p.Skillset == nil {
		p.Skillset = []string{}
	}
	if p.CurrentTasks == nil {
		p.CurrentTasks = []TaskRef{}
	}
}

// EmailDomain returns the part after '@' for log fields; full emails are not logged.
func EmailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 && i < len(email)-1 {
		return email[i+1:]
	}
	return ""
}
