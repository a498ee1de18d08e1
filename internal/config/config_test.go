package config

import (
	"os"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "*/30 * * * *", cfg.RefreshCron)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.DataDir, again.DataDir)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
timezone: America/New_York
data_dir: /tmp/fitcal
plans:
  - name: Upper body
    rrule: FREQ=WEEKLY;BYDAY=MO,TH
    start: 2024-06-03T07:00
classes:
  - url: https://gym.example.com/classes.ics
    name: Gym classes
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	require.Len(t, cfg.Plans, 1)
	assert.Equal(t, "plan-1", cfg.Plans[0].ID)
	assert.Equal(t, 60, cfg.Plans[0].DurationMinutes)
	require.Len(t, cfg.Classes, 1)
	assert.Equal(t, "Gym classes", cfg.Classes[0].SourceID())
	assert.Equal(t, "/tmp/fitcal/fitcal.db", cfg.DBPath())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Mars/Olympus\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.BasicAuth = &BasicAuthConfig{Username: "me", Password: "secret"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded.BasicAuth)
	assert.Equal(t, "me", loaded.BasicAuth.Username)
}

func TestSourceIDFallbacks(t *testing.T) {
	assert.Equal(t, "id", ICSConfig{ID: "id", Name: "n", URL: "u"}.SourceID())
	assert.Equal(t, "n", ICSConfig{Name: "n", URL: "u"}.SourceID())
	assert.Equal(t, "u", ICSConfig{URL: "u"}.SourceID())
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
