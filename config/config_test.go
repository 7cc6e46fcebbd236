package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromRequiresSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := LoadFrom("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoadFromDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.AppPort)
	assert.Equal(t, 72*time.Hour, cfg.SessionTTL())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "local", cfg.ArchiveBackend)
	assert.Equal(t, "pneumonia", cfg.ModelName)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.RegisterCaptchaEnabled)
}

func TestLoadFromFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"app": {"port": "8080", "session_secret": "from-file", "allowed_origins": ["https://a.example", "https://b.example"]},
		"model": {"server_url": "http://model:8501/", "timeout_sec": 3},
		"kafka": {"brokers": "k1:9092, k2:9092"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("APP_PORT", "9090")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.AppPort, "env overrides file")
	assert.Equal(t, "from-file", cfg.SessionSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "http://model:8501", cfg.ModelServerURL)
	assert.Equal(t, 3*time.Second, cfg.ModelTimeout())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestDialector(t *testing.T) {
	tests := []struct {
		name string
		cfg  AppConfig
		want string
	}{
		{"default sqlite", AppConfig{}, "sqlite"},
		{"flask style sqlite", AppConfig{DatabaseURI: "sqlite:///database.db"}, "sqlite"},
		{"bare db file", AppConfig{DatabaseURI: "data/app.db"}, "sqlite"},
		{"postgres url", AppConfig{DatabaseURI: "postgres://u:p@localhost:5432/scan"}, "postgres"},
		{"postgres kv", AppConfig{DatabaseURI: "host=localhost user=u dbname=scan"}, "postgres"},
		{"mysql dsn", AppConfig{DatabaseURI: "u:p@tcp(localhost:3306)/scan"}, "mysql"},
		{"mysql parts", AppConfig{DBHost: "db", DBPort: "3306", DBUser: "u", DBName: "scan"}, "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Dialector(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}

	_, err := Dialector(AppConfig{DatabaseURI: "oracle://nope"})
	assert.Error(t, err)
}
