package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamclerk/internal/domain"
)

func TestLoad_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")
	t.Setenv("CRON_SECRET", "cron-value")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
log_level: debug
database:
  host: db.internal
  password: ${TEST_DB_PASSWORD}
  dbname: dreamclerk
blog:
  posts_per_batch: 3
  categories: ["Study Tips", "Technology"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "cron-value", cfg.Secrets.Cron)
	assert.Equal(t, 3, cfg.Blog.PostsPerBatch)
	assert.Equal(t, []domain.Category{domain.CategoryStudyTips, domain.CategoryTechnology}, cfg.Blog.Categories)
	assert.Equal(t, time.Second, cfg.Blog.Delay)
	assert.Equal(t, 14*time.Minute, cfg.Blog.Timeout)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, float32(0.7), cfg.LLM.Temperature)
	assert.Equal(t, 1, cfg.LLM.Retry.MaxAttempts)
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("DATABASE_URL", "postgres://u:p@host:5432/db")
	t.Setenv("PORT", "9090")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "or-key", cfg.LLM.APIKey)
	assert.Equal(t, "postgres://u:p@host:5432/db", cfg.Database.DSN())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, domain.Categories, cfg.Blog.Categories)
	assert.Equal(t, 10, cfg.Blog.PostsPerBatch)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blog: [unclosed"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_InvalidPort(t *testing.T) {
	for _, port := range []string{"80abc", "http", "70000"} {
		t.Run(port, func(t *testing.T) {
			t.Setenv("PORT", port)

			_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsInvalidBlogSettings(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"negative batch size", "blog:\n  posts_per_batch: -3\n", "posts_per_batch"},
		{"negative delay", "blog:\n  delay: -1s\n", "delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o600))

			_, err := Load(path)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", DBName: "d", SSLMode: "require"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=require", d.DSN())
}
