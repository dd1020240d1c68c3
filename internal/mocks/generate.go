// Package mocks provides gomock implementations of the auth ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	provider := mocks.NewMockIdentityProvider(ctrl)
//	provider.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any()).Return(sess, nil)
package mocks

// MockIdentityProvider: SignInWithPassword, RefreshSession, SignOut, GetUser, UpdatePassword, ResetPasswordForEmail
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/snr-automations/teamdash/internal/ports IdentityProvider

// MockAllowlistRepository: FindByEmail
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=allowlist_repository_mock.go github.com/snr-automations/teamdash/internal/ports AllowlistRepository

// MockProfileRepository: GetByID
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_repository_mock.go github.com/snr-automations/teamdash/internal/ports ProfileRepository

// MockRecoveryTokenStore: Put, Get, Take
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=recovery_token_store_mock.go github.com/snr-automations/teamdash/internal/ports RecoveryTokenStore
