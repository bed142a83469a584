package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: Europe/Berlin
snapshot:
  source: ./snapshot.yaml
calendar:
  location: "Kellerraum"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "*/5 * * * *", cfg.RefreshCron)
	assert.Equal(t, 0, cfg.MinPlayers)
	assert.Equal(t, "./snapshot.yaml", cfg.Snapshot.Source)
	assert.Equal(t, "/var/lib/gamecal/cache", cfg.Snapshot.CacheDir)
	assert.Equal(t, "Kellerraum", cfg.Calendar.Location)
	assert.Equal(t, "gamecal.local", cfg.Calendar.UIDDomain)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"timezone":    "timezone: Mars/Olympus\nsnapshot: {source: a.yaml}\n",
		"cron":        "refresh: every minute\nsnapshot: {source: a.yaml}\n",
		"log level":   "log_level: loud\nsnapshot: {source: a.yaml}\n",
		"source":      "snapshot: {source: \"\"}\n",
		"min players": "min_players: -3\nsnapshot: {source: a.yaml}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.MinPlayers = 4
	cfg.Calendar.UseDefaultTimezone = true

	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}

func TestSave_RejectsEmptyInput(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}
