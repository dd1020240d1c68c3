package bootstrap

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snr-automations/teamdash/config"
	"github.com/snr-automations/teamdash/internal/adapters/devauth"
	"github.com/snr-automations/teamdash/internal/adapters/gotrue"
)

func TestBuildIdentityProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		auth    config.AuthConfig
		want    any
		wantErr string
	}{
		{
			name: "mock mode",
			auth: config.AuthConfig{
				Mode: config.AuthModeMock,
				DevAuth: config.DevAuthConfig{
					Users: []config.DevAuthUser{{Email: "dev@example.com", Password: "devpassword"}},
				},
				SessionTTL: time.Hour,
			},
			want: &devauth.Provider{},
		},
		{
			name: "mock mode without users",
			auth: config.AuthConfig{Mode: config.AuthModeMock},
			wantErr: "build dev identity provider",
		},
		{
			name: "supabase mode",
			auth: config.AuthConfig{
				Mode:     config.AuthModeSupabase,
				Supabase: config.SupabaseConfig{URL: "https://abc.supabase.co", AnonKey: "anon"},
			},
			want: &gotrue.Client{},
		},
		{
			name:    "supabase mode without key",
			auth:    config.AuthConfig{Mode: config.AuthModeSupabase, Supabase: config.SupabaseConfig{URL: "https://abc.supabase.co"}},
			wantErr: "anon key is required",
		},
		{
			name:    "unknown mode",
			auth:    config.AuthConfig{Mode: "ldap"},
			wantErr: "unknown auth mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prov, err := BuildIdentityProvider(tt.auth, logger)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, prov)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, prov)
		})
	}
}
