package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studio1767/fileman/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, config.StoreLocal, cfg.Store)
	require.Equal(t, 8192, cfg.Progress.ChunkSize)
	require.Equal(t, 100*time.Millisecond, cfg.Progress.Interval())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "fileman.yml", `
store: s3
s3:
  bucket: my-bucket
  prefix: photos
  compress: true
  identities_file: /tmp/ids.txt
progress:
  interval_ms: 250
log:
  level: debug
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.StoreS3, cfg.Store)
	require.Equal(t, "my-bucket", cfg.S3.Bucket)
	require.Equal(t, "photos", cfg.S3.Prefix)
	require.True(t, cfg.S3.Compress)
	require.Equal(t, "/tmp/ids.txt", cfg.S3.IdentitiesFile)
	require.Equal(t, "default", cfg.S3.Profile)
	require.Equal(t, 250*time.Millisecond, cfg.Progress.Interval())
	require.Equal(t, 8192, cfg.Progress.ChunkSize)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "fileman.toml", `
store = "local"
root = "/srv/files"

[progress]
chunk_size = 4096

[metrics]
addr = ":9100"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/files", cfg.Root)
	require.Equal(t, 4096, cfg.Progress.ChunkSize)
	require.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeFile(t, "fileman.yml", "store: local\nroot: /from/file\n")

	t.Setenv("FILEMAN_STORE", "s3")
	t.Setenv("FILEMAN_S3_BUCKET", "env-bucket")
	t.Setenv("FILEMAN_PROGRESS_INTERVAL_MS", "500")
	t.Setenv("FILEMAN_LOG_LEVEL", "error")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.StoreS3, cfg.Store)
	require.Equal(t, "env-bucket", cfg.S3.Bucket)
	require.Equal(t, "/from/file", cfg.Root)
	require.Equal(t, 500*time.Millisecond, cfg.Progress.Interval())
	require.Equal(t, "error", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"unknown store", func(c *config.Config) { c.Store = "ftp" }},
		{"s3 without bucket", func(c *config.Config) { c.Store = config.StoreS3 }},
		{"zero chunk size", func(c *config.Config) { c.Progress.ChunkSize = 0 }},
		{"negative interval", func(c *config.Config) { c.Progress.IntervalMS = -1 }},
	}

	require.NoError(t, config.Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.modify(cfg)

			var invalid *config.ErrInvalidConfig
			require.ErrorAs(t, cfg.Validate(), &invalid)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	_, err = config.Load(writeFile(t, "fileman.ini", "store=local"))
	var invalid *config.ErrInvalidConfig
	require.ErrorAs(t, err, &invalid)

	_, err = config.Load(writeFile(t, "bad.yml", "store: ftp\n"))
	require.ErrorAs(t, err, &invalid)

	t.Setenv("FILEMAN_PROGRESS_CHUNK_SIZE", "lots")
	_, err = config.Load("")
	require.Error(t, err)
}
