package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("BUSINESS_TZ", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "Europe/Paris", cfg.BusinessTZ.String())
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, int64(8000), cfg.ParkingWeekly().Amount)
	assert.Equal(t, "0 9 * * *", cfg.SweepSchedule)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PARKING_WEEKLY_CENTS=9500\nCURRENCY=chf\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PARKING_WEEKLY_CENTS")
		os.Unsetenv("CURRENCY")
	})
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(9500), cfg.ParkingWeekly().Amount)
	assert.Equal(t, "CHF", cfg.ParkingWeekly().Currency)
}

func TestLoadRejectsBadValues(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.env")

	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load(missing)
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SESSION_TTL", "soon")
	_, err = Load(missing)
	assert.ErrorContains(t, err, "SESSION_TTL")
}
