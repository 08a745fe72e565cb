package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWTSecret")
}

func TestLoadReadsSecretsFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt-secret-from-env-0123")
	t.Setenv("SESSION_SECRET", "session-secret-from-env-0123")
	t.Setenv("GIN_MODE", "release")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "jwt-secret-from-env-0123", s.JWTSecret)
	assert.Equal(t, "session-secret-from-env-0123", s.SessionSecret)
}

func TestReleaseRejectsSampleSecrets(t *testing.T) {
	s := TestSettings()
	s.GinMode = "release"
	s.JWTSecret = "change-me-jwt-secret-key"
	assert.ErrorContains(t, s.Validate(), "JWT_SECRET")

	s = TestSettings()
	s.GinMode = "release"
	s.SessionSecret = "change-me-session-secret"
	assert.ErrorContains(t, s.Validate(), "SESSION_SECRET")

	// debug keeps accepting them so .env.example works locally
	s.GinMode = "debug"
	assert.NoError(t, s.Validate())
}

func TestTestSettingsAreValid(t *testing.T) {
	require.NoError(t, TestSettings().Validate())
}
