package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const businessesYAML = `
defaults:
  timezone: Australia/Sydney
  relief_minutes: 20
businesses:
  - identifier: glow
  - identifier: perth-cuts
    timezone: Australia/Perth
    relief_minutes: 10
    start_hour: 6
    end_hour: 18
`

func TestLoadBusinessesConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "businesses.yaml", businessesYAML)

	cfg, err := LoadBusinessesConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Businesses, 2)

	glow := cfg.Get("glow")
	require.NotNil(t, glow)
	assert.Equal(t, "Australia/Sydney", glow.Timezone, "defaults applied")
	assert.Equal(t, 20, glow.ReliefMinutes)
	assert.Nil(t, cfg.Get("unknown"))
}

func TestBusinessesValidate(t *testing.T) {
	six, five := 6, 5
	tests := []struct {
		name string
		cfg  BusinessesConfig
	}{
		{"missing identifier", BusinessesConfig{Businesses: []BusinessConfig{{}}}},
		{"duplicate", BusinessesConfig{Businesses: []BusinessConfig{{Identifier: "a"}, {Identifier: "a"}}}},
		{"bad timezone", BusinessesConfig{Businesses: []BusinessConfig{{Identifier: "a", Timezone: "Nowhere/Town"}}}},
		{"negative relief", BusinessesConfig{Businesses: []BusinessConfig{{Identifier: "a", ReliefMinutes: -1}}}},
		{"half hour range", BusinessesConfig{Businesses: []BusinessConfig{{Identifier: "a", StartHour: &six}}}},
		{"inverted hours", BusinessesConfig{Businesses: []BusinessConfig{{Identifier: "a", StartHour: &six, EndHour: &five}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	global := &Config{}
	reg := NewRegistry(global)

	t.Run("NoOverrides", func(t *testing.T) {
		s, err := reg.Resolve("glow", "")
		require.NoError(t, err)
		assert.Equal(t, "Australia/Melbourne", s.Location.String())
		assert.Equal(t, 30*time.Minute, s.Relief)
		assert.Equal(t, 8, s.StartHour)
		assert.Equal(t, 20, s.EndHour)
	})

	path := writeFile(t, t.TempDir(), "businesses.yaml", businessesYAML)
	cfg, err := LoadBusinessesConfig(path)
	require.NoError(t, err)
	reg.Update(cfg)

	t.Run("BusinessOverrides", func(t *testing.T) {
		s, err := reg.Resolve("perth-cuts", "")
		require.NoError(t, err)
		assert.Equal(t, "Australia/Perth", s.Location.String())
		assert.Equal(t, 10*time.Minute, s.Relief)
		assert.Equal(t, 6, s.StartHour)
		assert.Equal(t, 18, s.EndHour)
	})

	t.Run("CompanyTimezoneWins", func(t *testing.T) {
		s, err := reg.Resolve("perth-cuts", "Pacific/Auckland")
		require.NoError(t, err)
		assert.Equal(t, "Pacific/Auckland", s.Location.String())
	})

	t.Run("UnknownCompanyTimezoneFallsBack", func(t *testing.T) {
		s, err := reg.Resolve("glow", "Not/AZone")
		require.NoError(t, err)
		assert.Equal(t, "Australia/Sydney", s.Location.String())
	})
}

func TestWatchBusinesses(t *testing.T) {
	path := writeFile(t, t.TempDir(), "businesses.yaml", businessesYAML)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *BusinessesConfig, 4)
	err := WatchBusinesses(ctx, path, 10*time.Millisecond, nil, func(c *BusinessesConfig) { updates <- c })
	require.NoError(t, err)

	first := <-updates
	assert.Len(t, first.Businesses, 2)

	require.NoError(t, os.WriteFile(path, []byte("businesses:\n  - identifier: only\n"), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case next := <-updates:
		require.Len(t, next.Businesses, 1)
		assert.Equal(t, "only", next.Businesses[0].Identifier)
	case <-time.After(2 * time.Second):
		t.Fatal("reload not observed")
	}
}

func TestWatchBusinessesMissingFile(t *testing.T) {
	err := WatchBusinesses(context.Background(), "/nonexistent/businesses.yaml", time.Second, nil, nil)
	assert.Error(t, err)
}

func touch(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestBusinessesWatcherReportsBrokenFileOnce(t *testing.T) {
	path := writeFile(t, t.TempDir(), "businesses.yaml", businessesYAML)
	info, err := os.Stat(path)
	require.NoError(t, err)

	var applied []*BusinessesConfig
	w := &businessesWatcher{path: path, seen: info.ModTime(), onUpdate: func(c *BusinessesConfig) { applied = append(applied, c) }}

	reloaded, err := w.poll()
	require.NoError(t, err)
	assert.False(t, reloaded, "unchanged file")

	broken := info.ModTime().Add(time.Minute)
	touch(t, path, "businesses: [\n", broken)
	_, err = w.poll()
	assert.Error(t, err)

	reloaded, err = w.poll()
	assert.NoError(t, err, "same broken file is not reported again")
	assert.False(t, reloaded)
	assert.Empty(t, applied)

	touch(t, path, "businesses:\n  - identifier: only\n", broken.Add(time.Minute))
	reloaded, err = w.poll()
	require.NoError(t, err)
	assert.True(t, reloaded)
	require.Len(t, applied, 1)
	assert.Equal(t, "only", applied[0].Businesses[0].Identifier)
}

func TestWatchBusinessesRejectsBrokenInitialFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "businesses.yaml", "businesses: [\n")
	err := WatchBusinesses(context.Background(), path, time.Second, nil, nil)
	assert.Error(t, err)
}
