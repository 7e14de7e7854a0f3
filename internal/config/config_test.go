package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.K8s.DefaultNamespace)
	assert.Equal(t, 5*time.Second, cfg.K8s.SyncTimeout)
	assert.True(t, cfg.K8s.UseInformer)
	assert.NotEmpty(t, cfg.Panel.DocsURL)
}

func TestLoadFrom_Env(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("K8S_DEFAULT_NAMESPACE", "apps")
	t.Setenv("K8S_SYNC_TIMEOUT", "2s")
	t.Setenv("K8S_USE_INFORMER", "false")
	t.Setenv("PANEL_DOCS_URL", "https://example.com/docs")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "apps", cfg.K8s.DefaultNamespace)
	assert.Equal(t, 2*time.Second, cfg.K8s.SyncTimeout)
	assert.False(t, cfg.K8s.UseInformer)
	assert.Equal(t, "https://example.com/docs", cfg.Panel.DocsURL)
}

func TestLoadFrom_UnsupportedDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")

	_, err := LoadFrom(viper.New())
	assert.Error(t, err)
}

func TestLoadFrom_JWTSecret(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)
	assert.True(t, cfg.UsesDefaultJWTSecret())

	t.Setenv("SERVER_MODE", "release")
	_, err = LoadFrom(viper.New())
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err = LoadFrom(viper.New())
	require.NoError(t, err)
	assert.False(t, cfg.UsesDefaultJWTSecret())
	assert.Equal(t, "release", cfg.Server.Mode)
}
