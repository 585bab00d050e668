package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://dati.gov.it/opendata/api/3/action", cfg.Catalog.BaseURL)
	assert.Equal(t, 100, cfg.Catalog.SearchRows)
	assert.InDelta(t, 5, cfg.Catalog.RatePerSec, 0.001)
	assert.Equal(t, 60, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 10, cfg.Loader.SampleRows)
	assert.Equal(t, DefaultLatSynonyms, cfg.Detect.LatSynonyms)
	assert.Equal(t, DefaultLonSynonyms, cfg.Detect.LonSynonyms)
	assert.Equal(t, 13, cfg.Map.Zoom)
	assert.Equal(t, "Mappa incidenti", cfg.Map.Title)
	assert.Equal(t, "Condizioni traffico", cfg.Filter.Column)
	assert.Equal(t, "Intenso", cfg.Filter.Value)
	assert.Equal(t, "N. veicoli coinvolti", cfg.Filter.CountColumn)
	assert.InDelta(t, 2, cfg.Filter.MinCount, 0.001)
	assert.Equal(t, "condizioni.xlsx", cfg.Filter.File)
	assert.Equal(t, "data", cfg.Output.DataDir)
	assert.Equal(t, "mappa_incidenti.html", cfg.Output.MapFile)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
	assert.Equal(t, 50, cfg.Batch.Limit)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
catalog:
  base_url: https://dati.comune.milano.it/api/3/action
loader:
  sample_rows: 25
detect:
  lat_synonyms: [lat_wgs84, lat]
map:
  zoom: 10
batch:
  concurrency: 4
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://dati.comune.milano.it/api/3/action", cfg.Catalog.BaseURL)
	assert.Equal(t, 25, cfg.Loader.SampleRows)
	assert.Equal(t, []string{"lat_wgs84", "lat"}, cfg.Detect.LatSynonyms)
	assert.Equal(t, DefaultLonSynonyms, cfg.Detect.LonSynonyms, "untouched lists keep their defaults")
	assert.Equal(t, 10, cfg.Map.Zoom)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadSynonymsFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	synPath := filepath.Join(dir, "synonyms.yaml")
	require.NoError(t, os.WriteFile(synPath, []byte("latitude:\n  - breitengrad\n  - lat\n"), 0o644))

	yaml := "detect:\n  synonyms_file: " + synPath + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"breitengrad", "lat"}, cfg.Detect.LatSynonyms)
	assert.Equal(t, DefaultLonSynonyms, cfg.Detect.LonSynonyms, "lists absent from the file keep their defaults")
}

func TestLoadSynonymsFileMissing(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := "detect:\n  synonyms_file: /nonexistent/synonyms.yaml\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("OPENDATA_STORE_DRIVER", "postgres")
	t.Setenv("OPENDATA_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shout", Format: "json"})
	assert.Error(t, err)
}
