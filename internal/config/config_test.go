package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SITE_BASE_URL", "https://catchme.live")
	t.Setenv("APP_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("INSTAGRAM_CLIENT_ID", "client-id")
	t.Setenv("INSTAGRAM_CLIENT_SECRET", "client-secret")
	t.Setenv("INSTAGRAM_REDIRECT_URI", "https://catchme.live/auth/callback")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "/me", cfg.DefaultReturnPath)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 10*time.Second, cfg.Instagram.Timeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Contains(t, cfg.Instagram.Scopes, "instagram_business_basic")
	assert.Len(t, cfg.Instagram.Scopes, 5)
	assert.Equal(t, "@hourly", cfg.Jobs.PruneSchedule)
}

func TestLoad_MissingRequiredFailsFast(t *testing.T) {
	setRequired(t)
	t.Setenv("INSTAGRAM_CLIENT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSTAGRAM_CLIENT_SECRET")
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_SECRET", "short")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_SECRET")
}

func TestLoad_RejectsRelativeBaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("SITE_BASE_URL", "catchme.live")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SITE_BASE_URL")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestLoad_RejectsAbsoluteReturnPath(t *testing.T) {
	setRequired(t)
	t.Setenv("DEFAULT_RETURN_PATH", "https://evil.example")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_CustomScopes(t *testing.T) {
	setRequired(t)
	t.Setenv("INSTAGRAM_SCOPES", "instagram_business_basic,instagram_business_content_publish")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"instagram_business_basic", "instagram_business_content_publish"}, cfg.Instagram.Scopes)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	setRequired(t)

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
}

func TestLoad_EnvFileSeedsEnvironment(t *testing.T) {
	setRequired(t)
	// godotenv does not override variables that are already set, so clear
	// PORT through t.Setenv first to have it restored after the test.
	t.Setenv("PORT", "")
	require.NoError(t, os.Unsetenv("PORT"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9191\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
}
