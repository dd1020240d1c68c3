package httpx

import (
	"context"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	"github.com/snr-automations/teamdash/internal/service"
)

// Unexported context key types avoid collisions across packages.
type (
	runtimeKey struct{}
	profileKey struct{}
)

// SetRuntimeInContext returns a child context that carries the client runtime.
func SetRuntimeInContext(ctx context.Context, rt *service.Runtime) context.Context {
	if rt == nil {
		return ctx
	}
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFromContext returns the client runtime attached by ClientRuntime.
func RuntimeFromContext(ctx context.Context) (*service.Runtime, bool) {
	rt, ok := ctx.Value(runtimeKey{}).(*service.Runtime)
	return rt, ok && rt != nil
}

// SetProfileInContext returns a child context that carries the signed-in profile.
// If p is nil, the original ctx is returned unchanged.
func SetProfileInContext(ctx context.Context, p *domainauth.UserProfile) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, profileKey{}, p)
}

// ProfileFromContext returns the profile attached by RequireAuth.
func ProfileFromContext(ctx context.Context) (*domainauth.UserProfile, bool) {
	p, ok := ctx.Value(profileKey{}).(*domainauth.UserProfile)
	return p, ok && p != nil
}
