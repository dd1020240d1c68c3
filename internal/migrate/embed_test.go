package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	versions, err := embedded()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_authorized_users", "0002_user_profiles"}, versions)
}

func TestEmbeddedMigrationsDeclareTables(t *testing.T) {
	allow, err := migrationsFS.ReadFile("migrations/0001_authorized_users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(allow), "authorized_users")

	prof, err := migrationsFS.ReadFile("migrations/0002_user_profiles.sql")
	require.NoError(t, err)
	assert.Contains(t, string(prof), "current_tasks")
	assert.Contains(t, string(prof), "'ProjectManager'")
}
