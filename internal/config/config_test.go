package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := Load(path)
	require.NoError(t, err)

	assert.False(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, defaultEmbeddingDimension, cfg.Model.EmbeddingDimension)
	assert.Equal(t, defaultTolerance, cfg.Recognition.Tolerance)
	assert.Equal(t, defaultLogFormat, cfg.Logging.Format)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[model]
dir = "`+dir+`"
backup_window_minutes = 10

[enrollment]
workers = 2
top_k = 6

[recognition]
tolerance = 0.5
retry_tolerance = 0.55
`)

	cfg, _, exists, err := Load(path)
	require.NoError(t, err)

	assert.True(t, exists)
	assert.Equal(t, dir, cfg.Model.Dir)
	assert.Equal(t, 10, cfg.Model.BackupWindowMinutes)
	assert.Equal(t, 2, cfg.Enrollment.Workers)
	assert.Equal(t, 6, cfg.Enrollment.TopK)
	assert.Equal(t, 0.5, cfg.Recognition.Tolerance)
	// Untouched sections keep their defaults.
	assert.Equal(t, defaultEmbeddingDimension, cfg.Model.EmbeddingDimension)
	assert.Equal(t, defaultFramesPerSec, cfg.Camera.FramesPerSec)
}

func TestLoadExpandsTilde(t *testing.T) {
	path := writeConfig(t, `
[model]
dir = "~/facevault-model"
`)

	cfg, _, _, err := Load(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "facevault-model"), cfg.Model.Dir)
	assert.True(t, filepath.IsAbs(cfg.Enrollment.CaptureDir))
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, `[model`)

	_, _, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing model dir",
			content: "[model]\ndir = \"\"",
			want:    "model.dir is required",
		},
		{
			name:    "non-nesting count bounds",
			content: "[model]\ncount_warn_min = 1\ncount_fatal_min = 5",
			want:    "count bounds must nest",
		},
		{
			name:    "retry below tolerance",
			content: "[recognition]\ntolerance = 0.6\nretry_tolerance = 0.5",
			want:    "retry_tolerance",
		},
		{
			name:    "zero workers",
			content: "[enrollment]\nworkers = 0",
			want:    "enrollment.workers",
		},
		{
			name:    "mirror without endpoint",
			content: "[mirror]\nenabled = true\nbucket = \"models\"",
			want:    "mirror.endpoint",
		},
		{
			name:    "bad log level",
			content: "[logging]\nlevel = \"verbose\"",
			want:    "logging.level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDisabledRefreshSkipsIntervalCheck(t *testing.T) {
	path := writeConfig(t, `
[refresh]
disabled = true
auto_interval_seconds = 0
`)

	cfg, _, _, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Refresh.Disabled)
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.normalize())
	assert.NoError(t, cfg.Validate())
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	path := writeConfig(t, SampleConfig())

	_, _, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
}
