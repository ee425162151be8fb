package appconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvFlagToEnvironment(t *testing.T) {
	tests := []struct {
		flag string
		want Environment
	}{
		{"test", Test},
		{"production", Production},
		{" PROD ", Production},
		{"development", Development},
		{"staging", Development},
		{"", Development},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.want, EnvFlagToEnvironment(tt.flag))
		})
	}
	assert.Equal(t, "production", Production.String())
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, int64(12625881), cfg.OSM.RelationID)
	assert.Equal(t, "20300101", cfg.Feed.EndDate)
	assert.Equal(t, 120, cfg.Feed.TimeOffsetMinutes)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
}

func TestParse(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(`
env: test
operator:
  timetableID: 42
  lastLegMinutes:
    "101-102": 3
merge:
  warnDistanceMeters: 50
  errorDistanceMeters: 150
`))
		require.NoError(t, err)

		assert.Equal(t, Test, cfg.Env)
		assert.Equal(t, 42, cfg.Operator.TimetableID)
		assert.Equal(t, map[string]int{"101-102": 3}, cfg.Operator.LastLegMinutes)
		assert.Equal(t, "http://rozklady.tczew.pl", cfg.Operator.BaseURL)
		assert.Equal(t, 50.0, cfg.Merge.WarnDistanceMeters)
	})

	t.Run("rejects inverted thresholds", func(t *testing.T) {
		_, err := Parse([]byte("merge:\n  warnDistanceMeters: 300\n  errorDistanceMeters: 200\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ErrorDistanceMeters")
	})

	t.Run("rejects malformed end date", func(t *testing.T) {
		_, err := Parse([]byte("feed:\n  endDate: 2030-01-01\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EndDate")
	})

	t.Run("rejects impossible end date", func(t *testing.T) {
		_, err := Parse([]byte("feed:\n  endDate: \"20301399\"\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "feed.endDate")
	})

	t.Run("rejects negative last leg", func(t *testing.T) {
		_, err := Parse([]byte("operator:\n  lastLegMinutes:\n    \"1-2\": -1\n"))
		assert.Error(t, err)
	})

	t.Run("rejects invalid yaml", func(t *testing.T) {
		_, err := Parse([]byte("osm: [unterminated"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error parsing config")
	})
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("output:\n  dir: build\n  geojson: false\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "build", cfg.Output.Dir)
		assert.False(t, cfg.Output.GeoJSON)
		assert.Equal(t, "tczew.zip", cfg.Output.GTFSFile)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})
}

func TestParseServer(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  port: 8080\n  refreshMinutes: 60\n  apiKeys: [secret]\n"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Server.RefreshMinutes)
	assert.Equal(t, []string{"secret"}, cfg.Server.APIKeys)

	_, err = Parse([]byte("server:\n  apiKeys: [\"\"]\n"))
	assert.Error(t, err)
}

func TestCacheTTL(t *testing.T) {
	tests := []struct {
		name     string
		ttl      int
		refresh  int
		expected time.Duration
	}{
		{"one-shot run keeps responses", 0, 0, 0},
		{"configured ttl without refresh", 90, 0, 90 * time.Minute},
		{"refresh bounds an unset ttl", 0, 60, 30 * time.Minute},
		{"refresh bounds a long ttl", 120, 60, 30 * time.Minute},
		{"short ttl is kept", 10, 60, 10 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.HTTP.CacheTTLMinutes = tt.ttl
			cfg.Server.RefreshMinutes = tt.refresh
			assert.Equal(t, tt.expected, cfg.CacheTTL())
			if tt.refresh > 0 {
				assert.Less(t, cfg.CacheTTL(), cfg.RefreshInterval())
			}
		})
	}
}
