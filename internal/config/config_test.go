package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(writeEnvFile(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "fpdf", cfg.Render.Backend)
	assert.Equal(t, 20.0, cfg.Render.MarginMM)
	assert.Equal(t, 5<<20, cfg.Render.MaxPhotoBytes)
	assert.Equal(t, 60*time.Second, cfg.Render.BrowserTimeout)
	assert.Equal(t, 10, cfg.Adapter.HistoryLimit)
	assert.Equal(t, 2*time.Hour, cfg.Adapter.SessionTTL)
	assert.False(t, cfg.Adapter.Enabled())
	assert.Equal(t, "host=localhost port=5432 user=cvstudio password=cvstudio dbname=cvstudio sslmode=disable", cfg.Database.DSN())
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("RENDER_VARIANT", "single-column")
	t.Setenv("ADAPTER_SESSION_TTL", "15m")
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load(writeEnvFile(t, "GEMINI_API_KEY=from-file\nCLAMD_ADDR=tcp://clamav:3310\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "single-column", cfg.Render.Variant)
	assert.Equal(t, 15*time.Minute, cfg.Adapter.SessionTTL)
	assert.Equal(t, "from-env", cfg.Adapter.APIKey, ".env must not override the environment")
	assert.Equal(t, "tcp://clamav:3310", cfg.Security.ClamdAddr)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")

	_, err := Load(writeEnvFile(t, ""))
	assert.ErrorContains(t, err, "minio access key id is required")

	setRequiredEnv(t)
	t.Setenv("API_PORT", "0")
	_, err = Load(writeEnvFile(t, ""))
	assert.ErrorContains(t, err, "api port must be positive")
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.ErrorContains(t, err, "load env files")
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLogAndOrigins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(writeEnvFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)

	var buf bytes.Buffer
	cfg.Log.NewLogger(&buf).Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	t.Setenv("LOG_LEVEL", "loud")
	_, err = Load(writeEnvFile(t, ""))
	assert.ErrorContains(t, err, "invalid log level")
}

func TestLoadFontFiles(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RENDER_FONT_FILE", "/fonts/NotoSansSC-Regular.ttf")
	t.Setenv("RENDER_FONT_BOLD_FILE", "/fonts/NotoSansSC-Bold.ttf")

	cfg, err := Load(writeEnvFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "/fonts/NotoSansSC-Regular.ttf", cfg.Render.FontFile)
	assert.Equal(t, "/fonts/NotoSansSC-Bold.ttf", cfg.Render.FontBoldFile)

	t.Setenv("RENDER_FONT_FILE", "")
	_, err = Load(writeEnvFile(t, ""))
	assert.ErrorContains(t, err, "require RENDER_FONT_FILE")
}
