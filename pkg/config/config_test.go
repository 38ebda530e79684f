package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cfg.yaml", "gcp_bucket_name: fc-bucket\nlog_level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fc-bucket", cfg.GCPBucketName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cfg.yaml", "gcp_bucket_name: fc-bucket\nworkers: 2\n")
	t.Setenv("GREGOR_GCP_BUCKET_NAME", "env-bucket")
	t.Setenv("GREGOR_WORKERS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-bucket", cfg.GCPBucketName)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("GREGOR_GCP_BUCKET_NAME", "env-bucket")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-bucket", cfg.GCPBucketName)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"valid", Config{GCPBucketName: "b", Workers: 1, LogLevel: "warn"}, ""},
		{"missing bucket", Config{Workers: 1, LogLevel: "info"}, "gcp_bucket_name is required"},
		{"bad level", Config{GCPBucketName: "b", Workers: 1, LogLevel: "loud"}, `log_level must be one of [debug info warn error], got "loud"`},
		{"no workers", Config{GCPBucketName: "b", LogLevel: "info"}, "workers must be at least 1"},
		{"schema dir", Config{GCPBucketName: "b", Workers: 1, LogLevel: "info", SchemaDir: "/no/such/dir"}, "schema_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GREGOR_PRESET", "kept")
	writeFile(t, dir, ".env", "GREGOR_DOTENV_ONLY=loaded\nGREGOR_PRESET=replaced\n")

	loaded, err := LoadDotEnv(dir)
	require.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("GREGOR_DOTENV_ONLY") })

	assert.Equal(t, filepath.Join(dir, ".env"), loaded)
	assert.Equal(t, "loaded", os.Getenv("GREGOR_DOTENV_ONLY"))
	assert.Equal(t, "kept", os.Getenv("GREGOR_PRESET"))
}

func TestLoadDotEnv_None(t *testing.T) {
	loaded, err := LoadDotEnv(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
