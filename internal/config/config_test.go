package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ORS_API_KEY", "ors-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/pickups")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, int32(10), cfg.DB.MaxConns)
	assert.Equal(t, 8*time.Second, cfg.ORS.Timeout)
	assert.Equal(t, 5, cfg.Routes.KeyPrecision)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, 7, cfg.Sweep.WindowDays)
	assert.Equal(t, 10000.0, cfg.DispatchMaxDistance)
	assert.Equal(t, "notifications", cfg.Notify.Exchange)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "30m")
	t.Setenv("DISPATCH_MAX_DISTANCE_METERS", "2500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 2500.0, cfg.DispatchMaxDistance)
}

func TestLoadRequiredVariables(t *testing.T) {
	cases := map[string]struct {
		env  map[string]string
		want string
	}{
		"jwt secret": {env: map[string]string{"JWT_SECRET": ""}, want: "JWT_SECRET"},
		"ors key":    {env: map[string]string{"ORS_API_KEY": ""}, want: "ORS_API_KEY"},
		"database":   {env: map[string]string{"DATABASE_URL": ""}, want: "DATABASE_URL"},
		"backend":    {env: map[string]string{"STORE_BACKEND": "sqlite"}, want: "STORE_BACKEND"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestMemoryBackendNeedsNoDatabase(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_BACKEND", "memory")

	_, err := Load()
	assert.NoError(t, err)
}
